// Package sequential implements the single-goroutine k-means engine.
package sequential

import (
	"context"
	"image"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
)

// Name is the registry name of this engine.
const Name = "Sequential"

// Engine runs Lloyd's loop on the calling goroutine.
type Engine struct {
	engine.ResultBuffer
	opts engine.Options

	iterations int
}

var _ engine.Engine = (*Engine)(nil)

// New creates a sequential engine.
func New(opts ...engine.Option) *Engine {
	return &Engine{opts: engine.ApplyOptions(opts...)}
}

// Exec implements engine.Engine.
func (e *Engine) Exec(ctx context.Context, img image.Image, k int) error {
	pixels, w, h := kmeans.Stage(img)
	if err := kmeans.ValidateK(k, w*h); err != nil {
		return err
	}

	rng := kmeans.NewRNG(e.opts.Seed)
	centroids, assignments := kmeans.Prepare(pixels, k, rng)

	start := time.Now()
	iter, err := kmeans.Iterate(ctx, pixels, centroids, assignments, e.opts.MaxIterations, rng)
	elapsed := time.Since(start)
	if err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	e.iterations = iter
	e.Store(kmeans.Materialize(centroids, assignments, w, h), elapsed)
	return nil
}

// Iterations returns the iteration count of the most recent successful Exec.
func (e *Engine) Iterations() int {
	return e.iterations
}
