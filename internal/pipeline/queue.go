package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueClosed is returned by Put after Close, and by Get once the queue
	// is closed and drained.
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueTimeout is returned when a timed Put or Get expires.
	ErrQueueTimeout = errors.New("queue timeout")
)

// Queue is a bounded FIFO shared by one or more producers and consumers.
// Close must be called after the last Put.
type Queue[T any] struct {
	items     chan T
	done      chan struct{}
	closeOnce sync.Once

	puts        atomic.Int64
	gets        atomic.Int64
	blockedPuts atomic.Int64
	peakDepth   atomic.Int64
}

// QueueStats is a point-in-time view of queue counters.
type QueueStats struct {
	Puts        int64 `json:"puts"`
	Gets        int64 `json:"gets"`
	BlockedPuts int64 `json:"blocked_puts"`
	PeakDepth   int64 `json:"peak_depth"`
	Capacity    int   `json:"capacity"`
}

// NewQueue constructs a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Put enqueues item, blocking while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.items <- item:
		q.recordPut()
		return nil
	default:
	}
	q.blockedPuts.Add(1)
	select {
	case q.items <- item:
		q.recordPut()
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PutTimeout is Put with an upper bound on how long it blocks.
func (q *Queue[T]) PutTimeout(ctx context.Context, item T, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := q.Put(tctx, item)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrQueueTimeout
	}
	return err
}

// Get dequeues the next item, blocking while the queue is empty. Items put
// before Close are still delivered after it.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T
	select {
	case item := <-q.items:
		q.gets.Add(1)
		return item, nil
	default:
	}
	select {
	case item := <-q.items:
		q.gets.Add(1)
		return item, nil
	case <-q.done:
		select {
		case item := <-q.items:
			q.gets.Add(1)
			return item, nil
		default:
			return zero, ErrQueueClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// GetTimeout is Get with an upper bound on how long it blocks.
func (q *Queue[T]) GetTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	item, err := q.Get(tctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return item, ErrQueueTimeout
	}
	return item, err
}

// Close marks the queue closed. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Stats snapshots the queue counters.
func (q *Queue[T]) Stats() QueueStats {
	return QueueStats{
		Puts:        q.puts.Load(),
		Gets:        q.gets.Load(),
		BlockedPuts: q.blockedPuts.Load(),
		PeakDepth:   q.peakDepth.Load(),
		Capacity:    cap(q.items),
	}
}

func (q *Queue[T]) recordPut() {
	q.puts.Add(1)
	depth := int64(len(q.items))
	for {
		peak := q.peakDepth.Load()
		if depth <= peak || q.peakDepth.CompareAndSwap(peak, depth) {
			return
		}
	}
}
