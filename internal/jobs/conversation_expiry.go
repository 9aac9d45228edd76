package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConversationExpirer is the part of the conversation service the sweeper needs
type ConversationExpirer interface {
	ExpireStale(ctx context.Context) int
}

// ConversationExpiry sweeps abandoned sign-up conversations so their users
// can react again and the pending map does not grow without bound
type ConversationExpiry struct {
	conversations ConversationExpirer
	interval      time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	running       bool
	mu            sync.Mutex
}

// NewConversationExpiry creates a new conversation expiry job
func NewConversationExpiry(conversations ConversationExpirer, interval time.Duration) *ConversationExpiry {
	if interval == 0 {
		interval = 1 * time.Minute // Default sweep every minute
	}
	return &ConversationExpiry{
		conversations: conversations,
		interval:      interval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the conversation expiry job
func (j *ConversationExpiry) Start() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run()
	slog.Info("conversation expiry started", slog.Duration("interval", j.interval))
}

// Stop gracefully stops the conversation expiry job
func (j *ConversationExpiry) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopCh)
	j.wg.Wait()
	slog.Info("conversation expiry stopped")
}

// run is the main loop
func (j *ConversationExpiry) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stopCh:
			return
		}
	}
}

func (j *ConversationExpiry) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n := j.RunOnce(ctx); n > 0 {
		slog.Info("expired sign-up conversations", slog.Int("count", n))
	}
}

// RunOnce runs one sweep (for testing or manual trigger) and returns how many
// conversations expired
func (j *ConversationExpiry) RunOnce(ctx context.Context) int {
	return j.conversations.ExpireStale(ctx)
}

// IsRunning returns whether the job is running
func (j *ConversationExpiry) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
