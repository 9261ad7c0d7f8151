package engine

import (
	"context"
	"fmt"
	"sync"
)

// workerPool runs jobs on a fixed number of goroutines behind a bounded
// queue. Every job reports back on its own channel. The engine uses a single
// worker so that builds never overlap.
type workerPool[T, R any] struct {
	mu      sync.RWMutex // guards closing queue against concurrent sends
	closed  bool
	queue   chan poolJob[T, R]
	process func(ctx context.Context, t T) (R, error)
	wg      sync.WaitGroup
}

type poolJob[T, R any] struct {
	ctx  context.Context
	in   T
	done chan poolResult[R]
}

type poolResult[R any] struct {
	val R
	err error
}

// newWorkerPool starts n workers reading from a queue of the given depth.
// Workers stop when ctx ends or the pool is drained.
func newWorkerPool[T, R any](ctx context.Context, n, depth int, fn func(context.Context, T) (R, error)) *workerPool[T, R] {
	p := &workerPool[T, R]{
		queue:   make(chan poolJob[T, R], depth),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			val, err := p.process(j.ctx, j.in)
			j.done <- poolResult[R]{val: val, err: err}
		case <-ctx.Done():
			return
		}
	}
}

// Do queues t and waits for its result. A full queue fails immediately with
// ErrQueueFull; ctx ending stops the wait but not a job already running.
func (p *workerPool[T, R]) Do(ctx context.Context, t T) (R, error) {
	var zero R
	j := poolJob[T, R]{ctx: ctx, in: t, done: make(chan poolResult[R], 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrClosed
	}
	select {
	case p.queue <- j:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		return zero, fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(p.queue))
	}

	select {
	case r := <-j.done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Drain refuses new jobs, lets the workers finish what is queued and waits
// for them. Calling it again is a no-op.
func (p *workerPool[T, R]) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are waiting.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the queue depth.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}
