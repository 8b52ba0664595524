package catalog

import (
	"context"
	"image/color"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/device"
	"github.com/hupe1980/kmeansbench/engine/parallel"
	"github.com/hupe1980/kmeansbench/engine/sequential"
	idevice "github.com/hupe1980/kmeansbench/internal/device"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
	"github.com/hupe1980/kmeansbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmark(t *testing.T) {
	r := Benchmark(WithSeed(1))
	t.Cleanup(func() { _ = engine.CloseAll(r) })

	assert.Equal(t, []string{
		"Reference",
		"Sequential",
		"Parallel_single",
		"Parallel_double",
		"Parallel_triple",
		"Parallel_quad",
		"Device",
	}, r.Names())

	for i, name := range []string{"Parallel_single", "Parallel_double", "Parallel_triple", "Parallel_quad"} {
		e, ok := r.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, i+1, e.(*parallel.Engine).Workers())
	}
}

func TestDemo(t *testing.T) {
	h := idevice.NewHost(idevice.Config{})
	r := Demo(WithHost(h), WithMaxIterations(5))
	t.Cleanup(func() { _ = engine.CloseAll(r) })

	assert.Equal(t, []string{"muesli/kmeans", "Pure Go", "Go + goroutines", "Go + device"}, r.Names())
	bench := Benchmark()
	t.Cleanup(func() { _ = engine.CloseAll(bench) })
	for _, name := range r.Names() {
		assert.NotContains(t, bench.Names(), name)
	}

	e, _ := r.Lookup(LabelParallel)
	assert.Equal(t, runtime.GOMAXPROCS(0), e.(*parallel.Engine).Workers())

	img := testutil.NewRNG(51).UniformImage(8, 8)
	for name, e := range r.All() {
		require.NoError(t, e.Exec(context.Background(), img, 3), name)
	}
	assert.Positive(t, h.Stats().Launches)
}

func TestDemo_Workers(t *testing.T) {
	r := Demo(WithWorkers(3))
	t.Cleanup(func() { _ = engine.CloseAll(r) })

	e, _ := r.Lookup(LabelParallel)
	assert.Equal(t, 3, e.(*parallel.Engine).Workers())
}

func TestTimedEngines_ExcludeSetup(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a 1024x1024 image")
	}

	img := testutil.Solid(1024, 1024, color.RGBA{R: 40, G: 80, B: 120, A: 0xff})

	// Staging plus centroid initialization happens before every timer starts.
	setup := time.Duration(math.MaxInt64)
	for range 3 {
		start := time.Now()
		pixels, _, _ := kmeans.Stage(img)
		kmeans.Prepare(pixels, 1, kmeans.NewRNG(1))
		setup = min(setup, time.Since(start))
	}

	par, err := parallel.New(2, engine.WithMaxIterations(1))
	require.NoError(t, err)
	engines := map[string]engine.Engine{
		sequential.Name: sequential.New(engine.WithMaxIterations(1)),
		parallel.Name:   par,
		device.Name:     device.New(engine.WithMaxIterations(1)),
	}

	for name, e := range engines {
		t.Cleanup(func() { _ = engine.Close(e) })

		start := time.Now()
		require.NoError(t, e.Exec(context.Background(), img, 1), name)
		wall := time.Since(start)

		d, err := e.ExecTime()
		require.NoError(t, err, name)
		assert.GreaterOrEqual(t, wall-d, setup/4, name)
	}
}
