package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testClock is a manually advanced clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestLimiter builds a limiter on a fixed clock. A burst of 0 means no
// burst; NewRateLimiter itself treats 0 as "use the default".
func newTestLimiter(t *testing.T, rate, burst int) (*RateLimiter, *testClock) {
	t.Helper()
	if burst == 0 {
		burst = -1
	}
	clock := &testClock{now: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{
		Rate:    rate,
		Window:  time.Minute,
		Burst:   burst,
		Cleanup: time.Hour,
		Now:     clock.Now,
	})
	t.Cleanup(rl.Stop)
	return rl, clock
}

// ============================================================================
// Configuration Tests
// ============================================================================

func TestNewRateLimiter_DefaultConfig(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	if rl.rate != 120 || rl.window != time.Minute || rl.burst != 30 || rl.cleanup != 5*time.Minute {
		t.Errorf("unexpected defaults: rate=%d window=%v burst=%d cleanup=%v", rl.rate, rl.window, rl.burst, rl.cleanup)
	}
}

func TestNewRateLimiter_NegativeBurstDisablesBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{Burst: -1})
	defer rl.Stop()

	if rl.burst != 0 {
		t.Errorf("expected burst 0, got %d", rl.burst)
	}
}

func TestRateLimiter_Stop_Idempotent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	rl.Stop()
	rl.Stop()
}

// ============================================================================
// Allow Tests
// ============================================================================

func TestAllow_ExceedsLimit_Denies(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 3, 1)

	for i := 0; i < 4; i++ {
		if allowed, _, _ := rl.Allow("client"); !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	allowed, remaining, _ := rl.Allow("client")
	if allowed || remaining != 0 {
		t.Errorf("expected denial with 0 remaining, got allowed=%v remaining=%d", allowed, remaining)
	}

	if allowed, _, _ := rl.Allow("other"); !allowed {
		t.Error("a different key should have its own bucket")
	}
}

func TestAllow_Refill(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, 60, 0)

	for i := 0; i < 60; i++ {
		rl.Allow("client")
	}
	if allowed, _, _ := rl.Allow("client"); allowed {
		t.Fatal("bucket should be empty")
	}

	// One token per second at 60 per minute
	clock.Advance(2 * time.Second)
	allowed, remaining, _ := rl.Allow("client")
	if !allowed || remaining != 1 {
		t.Errorf("expected partial refill of 2 tokens, got allowed=%v remaining=%d", allowed, remaining)
	}

	clock.Advance(time.Minute)
	_, remaining, _ = rl.Allow("client")
	if remaining != 59 {
		t.Errorf("expected full refill, got remaining=%d", remaining)
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 50, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _, _ := rl.Allow("client"); allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 50 {
		t.Errorf("expected exactly 50 granted requests, got %d", granted)
	}
}

func TestCleanupExpired_RemovesIdleBuckets(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, 10, 0)

	rl.Allow("idle")
	clock.Advance(90 * time.Second)
	rl.Allow("fresh")
	clock.Advance(40 * time.Second)

	if removed := rl.cleanupExpired(); removed != 1 {
		t.Errorf("expected 1 bucket removed, got %d", removed)
	}
	if _, ok := rl.buckets["fresh"]; !ok {
		t.Error("fresh bucket should be kept")
	}
}

// ============================================================================
// RateLimit Middleware Tests
// ============================================================================

func TestRateLimitMiddleware_SetsHeadersAndDenies(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)
	handler := RateLimit(rl)(&captureHandler{})

	req := httptest.NewRequest(http.MethodPost, "/v1/reactions", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("unexpected rate limit headers: %v", rr.Header())
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
}

func TestRateLimitMiddleware_KeysByGuildAndClient(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)
	handler := RateLimit(rl)(&captureHandler{})

	send := func(guildID uint64, addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/guilds/x/raids", nil)
		req.RemoteAddr = addr
		if guildID != 0 {
			req = req.WithContext(context.WithValue(req.Context(), GuildIDKey, guildID))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send(1, "10.0.0.1:1000"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send(1, "10.0.0.1:2000"); code != http.StatusTooManyRequests {
		t.Errorf("same host on another port should share a bucket, got %d", code)
	}
	if code := send(2, "10.0.0.1:1000"); code != http.StatusOK {
		t.Errorf("another guild should have its own bucket, got %d", code)
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientKey(req); got != "192.0.2.1" {
		t.Errorf("expected host without port, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.RemoteAddr = "pipe"
	if got := clientKey(req); got != "pipe" {
		t.Errorf("expected raw remote addr, got %q", got)
	}
}
