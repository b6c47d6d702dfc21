package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("worker pool stopped")

// workRequest is a unit of work executed on one of the pool goroutines.
type workRequest struct {
	fn   func() (any, error)
	done chan workResult
}

// workResult holds the return value from a unit of work.
type workResult struct {
	value any
	err   error
}

// WorldWorkers runs world evaluations on a fixed set of goroutines, so
// the number of worlds executing at once is bounded. Each world still
// runs on exactly one goroutine.
type WorldWorkers struct {
	requests chan workRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorldWorkers starts n worker goroutines. Evaluation cannot be
// interrupted: a caller whose ctx ends gets its error at once, but the
// worker stays busy until the world finishes, so a guest program that
// never terminates holds its worker for the life of the pool.
func NewWorldWorkers(n int) *WorldWorkers {
	if n < 1 {
		n = 1
	}
	w := &WorldWorkers{
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		go w.loop()
	}
	return w
}

// loop processes requests until the pool stops.
func (w *WorldWorkers) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *WorldWorkers) execute(fn func() (any, error)) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			result = workResult{err: fmt.Errorf("panic during evaluation: %v", r)}
		}
	}()
	v, err := fn()
	return workResult{value: v, err: err}
}

// Do submits fn and waits for its result. It returns early when ctx is
// done or the pool stops; abandoned work still runs to completion.
func (w *WorldWorkers) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case <-w.quit:
		return nil, ErrWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutines.
func (w *WorldWorkers) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
