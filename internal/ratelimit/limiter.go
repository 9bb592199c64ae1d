package ratelimit

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of in-flight provider calls.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter allows up to n concurrent holders. n < 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a permit is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire takes a permit without blocking.
func (l *Limiter) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release returns a permit taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a permit.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}
