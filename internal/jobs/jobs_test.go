package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
}

func (e *countingExpirer) ExpireStale(context.Context) int {
	e.calls.Add(1)
	return 2
}

func TestConversationExpiry_RunOnce(t *testing.T) {
	t.Parallel()

	expirer := &countingExpirer{}
	job := NewConversationExpiry(expirer, 0)
	assert.Equal(t, time.Minute, job.interval)

	assert.Equal(t, 2, job.RunOnce(context.Background()))
	assert.Equal(t, int32(1), expirer.calls.Load())
}

func TestConversationExpiry_StartStop(t *testing.T) {
	t.Parallel()

	expirer := &countingExpirer{}
	job := NewConversationExpiry(expirer, 5*time.Millisecond)

	job.Start()
	job.Start() // second start is a no-op
	assert.True(t, job.IsRunning())

	require.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	job.Stop()
	job.Stop()
	assert.False(t, job.IsRunning())
}

type fakeStore struct{ err error }

func (s fakeStore) Ping(context.Context) error { return s.err }

type fakeCounter int

func (c fakeCounter) Count() int { return int(c) }

type fakeGauge struct {
	raids int
	up    bool
}

func (g *fakeGauge) SetRaids(n int)     { g.raids = n }
func (g *fakeGauge) SetStoreUp(up bool) { g.up = up }

func TestStoreMonitor_RunOnce(t *testing.T) {
	t.Parallel()

	gauge := &fakeGauge{}
	monitor := NewStoreMonitor(fakeStore{}, fakeCounter(4), gauge, 0)
	require.NoError(t, monitor.RunOnce(context.Background()))
	assert.Equal(t, 4, gauge.raids)
	assert.True(t, gauge.up)

	down := NewStoreMonitor(fakeStore{err: errors.New("connection refused")}, fakeCounter(4), gauge, 0)
	assert.Error(t, down.RunOnce(context.Background()))
	assert.False(t, gauge.up)
}
