// Package workerpool implements the bounded-concurrency gate the
// specification requires for external name/lonlat/id/keyword searches: a
// fixed number of execution slots plus a bounded wait queue; a caller
// arriving when the queue is full is rejected, not blocked. Grounded on the teacher's fixed-concurrency goroutine
// shape (cmd/loadtest's -concurrency workers, shard.Router's fixed engine
// capacity), generalized into a submit-and-block pool with a clean
// Close/drain path.
package workerpool

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// Pool bounds concurrent execution of database-backed query work to size
// slots, with a queue of at most queueSize waiters; Submit rejects a caller
// beyond that with ErrDataSource (503) instead of blocking it.
type Pool struct {
	slots chan struct{}
	queue chan struct{}

	mu     sync.Mutex
	closed bool

	logger *slog.Logger
}

// New returns a Pool with size concurrent slots and a wait queue of
// queueSize additional waiters.
func New(size, queueSize int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		slots:  make(chan struct{}, size),
		queue:  make(chan struct{}, size+queueSize),
		logger: slog.Default().With("component", "worker-pool"),
	}
}

// Submit runs fn once a slot is available, blocking until one is, the
// queue is full (ErrDataSource, "pool saturated"), ctx is cancelled, or the
// pool is closed. The result of fn is returned to the caller.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	select {
	case p.queue <- struct{}{}:
	default:
		return nil, apperrors.New(apperrors.ErrDataSource, 503, "worker pool queue is full")
	}
	defer func() { <-p.queue }()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.slots }()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, apperrors.New(apperrors.ErrDataSource, 503, "worker pool is closed")
	}

	return fn(ctx)
}

// Close marks the pool closed; in-flight work finishes but new Submit calls
// are rejected. Matches the specification's shutdown step 4: worker pools
// are signaled to stop once the current generation has finished
// initializing.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.logger.Info("worker pool closed")
}
