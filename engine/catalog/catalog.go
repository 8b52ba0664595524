// Package catalog builds the standard engine registries used by the drivers.
package catalog

import (
	"runtime"

	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/device"
	"github.com/hupe1980/kmeansbench/engine/parallel"
	"github.com/hupe1980/kmeansbench/engine/reference"
	"github.com/hupe1980/kmeansbench/engine/sequential"
	idevice "github.com/hupe1980/kmeansbench/internal/device"
)

// Parallel variants registered by Benchmark, by worker count.
var parallelVariants = []struct {
	name    string
	workers int
}{
	{"Parallel_single", 1},
	{"Parallel_double", 2},
	{"Parallel_triple", 3},
	{"Parallel_quad", 4},
}

// Options configures the engines of a catalog registry.
type Options struct {
	Engine  []engine.Option
	Host    *idevice.Host
	Workers int
}

// Option configures a catalog registry.
type Option func(*Options)

// WithSeed sets the seed of every engine.
func WithSeed(seed int64) Option {
	return func(o *Options) {
		o.Engine = append(o.Engine, engine.WithSeed(seed))
	}
}

// WithMaxIterations sets the iteration bound of every engine.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.Engine = append(o.Engine, engine.WithMaxIterations(n))
	}
}

// WithBlockSize sets the device engine's pixels per block.
func WithBlockSize(n int) Option {
	return func(o *Options) {
		o.Engine = append(o.Engine, engine.WithBlockSize(n))
	}
}

// WithHost runs the device engine on h instead of a default host.
func WithHost(h *idevice.Host) Option {
	return func(o *Options) {
		o.Host = h
	}
}

// WithWorkers sets the worker count of the Demo registry's parallel engine.
// Values < 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

func applyOptions(opts ...Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if o.Host == nil {
		o.Host = idevice.NewHost(idevice.Config{})
	}
	if o.Workers < 1 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Benchmark returns the registry swept by the benchmark driver: Reference,
// Sequential, Parallel_single..Parallel_quad and Device. Release it with
// engine.CloseAll.
func Benchmark(opts ...Option) *engine.Registry {
	o := applyOptions(opts...)

	r := engine.NewRegistry()
	r.MustRegister(reference.Name, reference.New(o.Engine...))
	r.MustRegister(sequential.Name, sequential.New(o.Engine...))
	for _, v := range parallelVariants {
		r.MustRegister(v.name, mustParallel(v.workers, o.Engine))
	}
	r.MustRegister(device.Name, device.NewWithHost(o.Host, o.Engine...))
	return r
}

// Labels drawn under each pane of the comparison demo.
const (
	LabelReference  = "muesli/kmeans"
	LabelSequential = "Pure Go"
	LabelParallel   = "Go + goroutines"
	LabelDevice     = "Go + device"
)

// Demo returns the registry shown by the comparison demo, keyed by display
// label rather than benchmark file name. Release it with engine.CloseAll.
func Demo(opts ...Option) *engine.Registry {
	o := applyOptions(opts...)

	r := engine.NewRegistry()
	r.MustRegister(LabelReference, reference.New(o.Engine...))
	r.MustRegister(LabelSequential, sequential.New(o.Engine...))
	r.MustRegister(LabelParallel, mustParallel(o.Workers, o.Engine))
	r.MustRegister(LabelDevice, device.NewWithHost(o.Host, o.Engine...))
	return r
}

func mustParallel(workers int, opts []engine.Option) *parallel.Engine {
	e, err := parallel.New(workers, opts...)
	if err != nil {
		panic(err)
	}
	return e
}
