// Package worker runs background tasks on a fixed set of goroutines.
package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-drift/lattice/pkg/errors"
)

// Pool is a bounded pool of worker goroutines sharing one task queue.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	closing sync.Once

	running   atomic.Bool
	submitted atomic.Uint64
	completed atomic.Uint64
}

// New creates a pool with the given number of workers and queue capacity.
// Non-positive workers uses GOMAXPROCS; non-positive queueSize uses four
// slots per worker.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	p := &Pool{
		workers: workers,
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			p.drain()
			return
		case work := <-p.queue:
			p.run(work)
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case work := <-p.queue:
			p.run(work)
		default:
			return
		}
	}
}

func (p *Pool) run(work func()) {
	if work == nil {
		return
	}
	defer p.completed.Add(1)
	defer errors.Recover("worker.Pool")
	work()
}

// Submit queues work, blocking while the queue is full.
// It returns the context's error if ctx ends first and ErrQueueClosed
// after Close.
func (p *Pool) Submit(ctx context.Context, work func()) error {
	if !p.running.Load() {
		return errors.ErrQueueClosed
	}
	select {
	case p.queue <- work:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return errors.ErrQueueClosed
	}
}

// TrySubmit queues work without blocking. It returns ErrQueueFull when
// every slot is taken and ErrQueueClosed after Close.
func (p *Pool) TrySubmit(work func()) error {
	if !p.running.Load() {
		return errors.ErrQueueClosed
	}
	select {
	case p.queue <- work:
		p.submitted.Add(1)
		return nil
	case <-p.done:
		return errors.ErrQueueClosed
	default:
		return errors.ErrQueueFull
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Pending returns the number of submitted tasks that have not finished.
func (p *Pool) Pending() int {
	return int(p.submitted.Load() - p.completed.Load())
}

// Close stops accepting work, runs what is already queued and waits for
// the workers to exit.
func (p *Pool) Close() {
	p.closing.Do(func() {
		p.running.Store(false)
		close(p.done)
	})
	p.wg.Wait()
}
