package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StorePinger checks that the snapshot backend is reachable
type StorePinger interface {
	Ping(ctx context.Context) error
}

// RaidCounter reports how many raids are held
type RaidCounter interface {
	Count() int
}

// StoreGauge receives the monitor's observations
type StoreGauge interface {
	SetRaids(n int)
	SetStoreUp(up bool)
}

// StoreMonitor periodically pings the snapshot backend and publishes the raid
// count, so a dead backend shows up before the next roster change fails
type StoreMonitor struct {
	store    StorePinger
	raids    RaidCounter
	gauge    StoreGauge
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewStoreMonitor creates a new store monitor job
func NewStoreMonitor(store StorePinger, raids RaidCounter, gauge StoreGauge, interval time.Duration) *StoreMonitor {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &StoreMonitor{
		store:    store,
		raids:    raids,
		gauge:    gauge,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the store monitor job
func (m *StoreMonitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run()
	slog.Info("store monitor started", slog.Duration("interval", m.interval))
}

// Stop gracefully stops the store monitor job
func (m *StoreMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	slog.Info("store monitor stopped")
}

// run is the main loop
func (m *StoreMonitor) run() {
	defer m.wg.Done()

	// Run immediately on start
	m.check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopCh:
			return
		}
	}
}

func (m *StoreMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.RunOnce(ctx); err != nil {
		slog.Warn("snapshot store unreachable", slog.String("error", err.Error()))
	}
}

// RunOnce pings the store and publishes the current counts
func (m *StoreMonitor) RunOnce(ctx context.Context) error {
	m.gauge.SetRaids(m.raids.Count())
	err := m.store.Ping(ctx)
	m.gauge.SetStoreUp(err == nil)
	return err
}

// IsRunning returns whether the monitor is running
func (m *StoreMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
