package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
)

// Queue is a bounded multi-producer queue drained by the UI goroutine.
// Its overflow policy is fixed at construction: PolicyBlock makes Push wait
// for space or for the producer's context, PolicyDropOldest discards the
// oldest queued item.
type Queue[T any] struct {
	ch      chan T
	policy  config.Policy
	closed  chan struct{}
	once    sync.Once
	dropped atomic.Uint64

	// OnDrop is called on the producer's goroutine with each discarded item.
	OnDrop func(T)
}

// NewQueue returns a queue holding at most size items.
func NewQueue[T any](size int, policy config.Policy) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{
		ch:     make(chan T, size),
		policy: policy,
		closed: make(chan struct{}),
	}
}

// Push enqueues v according to the queue's policy.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	select {
	case <-q.closed:
		return errors.ErrQueueClosed
	default:
	}
	if q.policy == config.PolicyDropOldest {
		for {
			select {
			case q.ch <- v:
				return nil
			default:
			}
			select {
			case old := <-q.ch:
				q.dropped.Add(1)
				if q.OnDrop != nil {
					q.OnDrop(old)
				}
			default:
			}
		}
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closed:
		return errors.ErrQueueClosed
	}
}

// TryPush enqueues v without blocking. It returns ErrQueueFull when a
// blocking queue has no space.
func (q *Queue[T]) TryPush(v T) error {
	if q.policy == config.PolicyDropOldest {
		return q.Push(context.Background(), v)
	}
	select {
	case <-q.closed:
		return errors.ErrQueueClosed
	case q.ch <- v:
		return nil
	default:
		return errors.ErrQueueFull
	}
}

// Drain removes and returns the items queued at the time of the call.
// Items pushed while draining wait for the next call, which keeps a frame
// from being extended indefinitely by a busy producer.
func (q *Queue[T]) Drain() []T {
	n := len(q.ch)
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for range n {
		select {
		case v := <-q.ch:
			out = append(out, v)
		default:
			return out
		}
	}
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Policy returns the overflow policy.
func (q *Queue[T]) Policy() config.Policy {
	return q.policy
}

// Dropped returns how many items the drop-oldest policy discarded.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// Close rejects further pushes and wakes blocked producers.
func (q *Queue[T]) Close() {
	q.once.Do(func() { close(q.closed) })
}
