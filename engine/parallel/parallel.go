// Package parallel implements the thread-parallel k-means engine.
//
// The pixel range is split into W contiguous chunks. Each iteration runs one
// task per chunk on a fixed worker pool: the task assigns its pixels and
// accumulates them into a private Accumulator. The calling goroutine then
// merges the partial sums and updates the centroids, so no lock is taken on
// the hot path.
package parallel

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
	"github.com/hupe1980/kmeansbench/internal/pool"
)

// Name is the registry name used when the worker count is not encoded in the name.
const Name = "Parallel"

// Engine runs Lloyd's loop across a fixed set of worker goroutines.
type Engine struct {
	engine.ResultBuffer
	opts    engine.Options
	workers int
	pool    *pool.WorkerPool

	iterations int
}

var _ engine.Engine = (*Engine)(nil)

// New creates a parallel engine with the given number of workers.
// The workers are started immediately; call Close to stop them.
func New(workers int, opts ...engine.Option) (*Engine, error) {
	if workers < 1 {
		return nil, kmeansbench.NewArgumentError("workers", fmt.Sprint(workers), "must be >= 1", nil)
	}

	return &Engine{
		opts:    engine.ApplyOptions(opts...),
		workers: workers,
		pool:    pool.NewWorkerPool(workers),
	}, nil
}

// Workers returns the configured worker count.
func (e *Engine) Workers() int {
	return e.workers
}

// Iterations returns the iteration count of the most recent successful Exec.
func (e *Engine) Iterations() int {
	return e.iterations
}

// Close stops the worker goroutines.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

type chunk struct {
	lo, hi  int
	acc     *kmeans.Accumulator
	changed int
}

// split divides [0, n) into at most w contiguous non-empty chunks.
func split(n, w int) []*chunk {
	if w > n {
		w = n
	}
	chunks := make([]*chunk, 0, w)
	size, rem := n/w, n%w
	lo := 0
	for i := 0; i < w; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		chunks = append(chunks, &chunk{lo: lo, hi: hi})
		lo = hi
	}
	return chunks
}

// Exec implements engine.Engine.
func (e *Engine) Exec(ctx context.Context, img image.Image, k int) error {
	pixels, w, h := kmeans.Stage(img)
	n := w * h
	if err := kmeans.ValidateK(k, n); err != nil {
		return err
	}

	rng := kmeans.NewRNG(e.opts.Seed)
	centroids, assignments := kmeans.Prepare(pixels, k, rng)

	start := time.Now()

	total := kmeans.NewAccumulator(k)

	chunks := split(n, e.workers)
	tasks := make([]func(), len(chunks))
	for i, c := range chunks {
		c.acc = kmeans.NewAccumulator(k)
		tasks[i] = func() {
			c.changed = kmeans.AssignRange(pixels, centroids, assignments, c.lo, c.hi)
			c.acc.Reset()
			c.acc.AddRange(pixels, assignments, c.lo, c.hi)
		}
	}

	iter := 0
	for iter < e.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return kmeansbench.NewEngineError(Name, 0, 0, err)
		}
		iter++

		if err := e.pool.RunAll(ctx, tasks); err != nil {
			return kmeansbench.NewEngineError(Name, 0, 0, err)
		}

		changed := 0
		total.Reset()
		for _, c := range chunks {
			changed += c.changed
			total.Merge(c.acc)
		}
		if changed == 0 {
			break
		}

		total.Update(centroids, pixels, rng)
	}

	elapsed := time.Since(start)

	e.iterations = iter
	e.Store(kmeans.Materialize(centroids, assignments, w, h), elapsed)
	return nil
}
