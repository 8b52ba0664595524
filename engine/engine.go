package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
)

// Engine is one k-means backend.
//
// Implementations are not required to be safe for concurrent use; drivers
// run engines strictly one at a time.
type Engine interface {
	// Exec clusters the pixels of img into k colors and stores the result
	// image and execution time, replacing those of the previous run.
	Exec(ctx context.Context, img image.Image, k int) error

	// Result returns the result image of the most recent successful Exec.
	Result() (*image.RGBA, error)

	// ExecTime returns the clustering time of the most recent successful Exec.
	ExecTime() (time.Duration, error)
}

// Options holds settings common to all engines.
type Options struct {
	// Seed drives centroid initialization. The same seed is reused for every
	// Exec, so repeated runs on the same input start identically.
	Seed int64

	// MaxIterations bounds Lloyd's loop. Values < 1 fall back to
	// kmeans.DefaultMaxIterations.
	MaxIterations int

	// BlockSize is the number of pixels per work unit for engines that
	// partition the image (device engine). Values < 1 select a default.
	BlockSize int
}

// Option configures an engine.
type Option func(*Options)

// WithSeed sets the initialization seed.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithMaxIterations sets the iteration bound.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// WithBlockSize sets the pixels-per-block for partitioned engines.
func WithBlockSize(n int) Option {
	return func(o *Options) {
		o.BlockSize = n
	}
}

// DefaultSeed is used when no WithSeed option is given.
const DefaultSeed = 0x6b6d65616e73

// ApplyOptions returns Options with defaults filled in.
func ApplyOptions(opts ...Option) Options {
	o := Options{
		Seed:          DefaultSeed,
		MaxIterations: kmeans.DefaultMaxIterations,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxIterations < 1 {
		o.MaxIterations = kmeans.DefaultMaxIterations
	}
	return o
}

// ResultBuffer stores the outcome of the most recent successful run.
// Engines hold one as a field; the zero value is empty.
type ResultBuffer struct {
	mu       sync.RWMutex
	img      *image.RGBA
	execTime time.Duration
	valid    bool
}

// Store replaces the stored result.
func (b *ResultBuffer) Store(img *image.RGBA, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.img = img
	b.execTime = d
	b.valid = true
}

// Result returns the stored image or ErrNoResultAvailable.
func (b *ResultBuffer) Result() (*image.RGBA, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.valid {
		return nil, kmeansbench.ErrNoResultAvailable
	}
	return b.img, nil
}

// ExecTime returns the stored time or ErrNoResultAvailable.
func (b *ResultBuffer) ExecTime() (time.Duration, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.valid {
		return 0, kmeansbench.ErrNoResultAvailable
	}
	return b.execTime, nil
}

// Close releases resources held by e if it implements io.Closer.
func Close(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CloseAll closes every engine in r that implements io.Closer.
func CloseAll(r *Registry) error {
	var errs []error
	for _, rec := range r.Records() {
		if err := Close(rec.Engine); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
