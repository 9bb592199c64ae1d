package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newMachine(settings Settings) (*StateMachine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewStateMachine(settings)
	m.now = clock.now
	return m, clock
}

func TestThrottleUsesRetryAfterThenRecovers(t *testing.T) {
	m, clock := newMachine(Settings{DefaultBackoff: 2 * time.Second, Window: 20, ErrorThreshold: 0.5, CacheOnlyPeriod: time.Minute})
	if !m.ShouldMakeRequest() {
		t.Fatal("expected NORMAL at start")
	}
	m.RecordRateLimited(5 * time.Second)
	if m.State() != StateThrottle || m.ShouldMakeRequest() {
		t.Fatalf("state = %s, want THROTTLE", m.State())
	}
	if d := m.RetryDelay(); d != 5*time.Second {
		t.Fatalf("RetryDelay = %v, want 5s", d)
	}
	clock.t = clock.t.Add(5 * time.Second)
	if m.State() != StateNormal || m.RetryDelay() != 0 {
		t.Fatalf("state = %s after backoff, want NORMAL", m.State())
	}
}

func TestThrottleDefaultBackoff(t *testing.T) {
	m, _ := newMachine(Settings{DefaultBackoff: 2 * time.Second, Window: 20, ErrorThreshold: 0.5, CacheOnlyPeriod: time.Minute})
	m.RecordRateLimited(0)
	if d := m.RetryDelay(); d != 2*time.Second {
		t.Fatalf("RetryDelay = %v, want default 2s", d)
	}
}

func TestErrorRateEntersCacheOnlyThenRecovers(t *testing.T) {
	m, clock := newMachine(Settings{DefaultBackoff: time.Second, Window: 4, ErrorThreshold: 0.5, CacheOnlyPeriod: time.Minute})
	m.RecordSuccess()
	m.RecordError()
	m.RecordError()
	if m.State() != StateNormal {
		t.Fatal("window not full yet; must stay NORMAL")
	}
	m.RecordSuccess()
	if m.State() != StateNormal {
		t.Fatal("error rate 0.5 is not above threshold")
	}
	m.RecordError()
	if m.State() != StateCacheOnly {
		t.Fatalf("state = %s, want CACHE_ONLY at 3/4 errors", m.State())
	}
	m.RecordRateLimited(time.Second)
	if m.State() != StateCacheOnly {
		t.Fatal("rate limit must not downgrade CACHE_ONLY")
	}
	clock.t = clock.t.Add(time.Minute)
	if m.State() != StateNormal {
		t.Fatalf("state = %s after recovery period, want NORMAL", m.State())
	}
	m.RecordError()
	if m.State() != StateNormal {
		t.Fatal("window must reset after recovery")
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(2)
	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func(context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}

func TestLimiterAcquireHonoursContext(t *testing.T) {
	l := NewLimiter(1)
	if !l.TryAcquire() {
		t.Fatal("TryAcquire on empty limiter failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected Acquire to fail while permit is held")
	}
	l.Release()
}
