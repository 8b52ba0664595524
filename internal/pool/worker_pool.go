// Package pool provides the fixed goroutine pool used by the parallel engine.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool closed")

// ErrTaskPanic wraps a panic raised by a task passed to RunAll.
var ErrTaskPanic = errors.New("worker pool task panicked")

// WorkerPool manages a fixed pool of goroutines for parallel tasks.
// Workers are started once and reused for every submitted task, so a
// clustering run does not spawn goroutines per iteration.
type WorkerPool struct {
	numWorkers int
	workCh     chan func() // Channel carries work closures
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool // Tracks if pool is closed
	submitMu   sync.RWMutex
}

// NewWorkerPool creates a worker pool with numWorkers goroutines.
// If numWorkers <= 0, runtime.GOMAXPROCS(0) is used.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2), // 2x buffer for pipelining
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

// Size returns the number of worker goroutines.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// worker processes work closures from the work channel.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain remaining work before exiting
			for {
				select {
				case workFunc, ok := <-wp.workCh:
					if !ok {
						return
					}
					workFunc()
				default:
					return
				}
			}
		case workFunc, ok := <-wp.workCh:
			if !ok {
				return
			}
			workFunc()
		}
	}
}

// Submit enqueues a task and returns without waiting for it.
//
// Error conditions:
//   - ErrPoolClosed if the pool is closed
//   - ctx.Err() if the context is cancelled before enqueueing
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrPoolClosed
	}

	// Enqueue work (with backpressure)
	select {
	case wp.workCh <- task:
		return nil
	case <-wp.stopCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAll submits every task and blocks until all submitted tasks finished.
// If a submission fails, the remaining tasks are not submitted and the
// submission error is returned after the already-running tasks complete.
// A panicking task does not kill its worker; the first panic is returned
// wrapped in ErrTaskPanic once all tasks are done.
func (wp *WorkerPool) RunAll(ctx context.Context, tasks []func()) error {
	var (
		wg        sync.WaitGroup
		submitErr error
		panicOnce sync.Once
		panicErr  error
	)
	for _, task := range tasks {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					panicOnce.Do(func() {
						panicErr = fmt.Errorf("%w: %v", ErrTaskPanic, p)
					})
				}
			}()
			task()
		})
		if err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()
	if panicErr != nil {
		return panicErr
	}
	return submitErr
}

// Close shuts down the worker pool gracefully. It is idempotent.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}

	wp.submitMu.Lock()
	close(wp.stopCh)
	close(wp.workCh)
	wp.submitMu.Unlock()

	wp.wg.Wait()
}
