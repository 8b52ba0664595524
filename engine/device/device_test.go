package device

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/sequential"
	idevice "github.com/hupe1980/kmeansbench/internal/device"
	"github.com/hupe1980/kmeansbench/internal/enginetest"
	"github.com/hupe1980/kmeansbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	for _, bs := range []int{0, 1, 7, 64} {
		t.Run(fmt.Sprintf("block=%d", bs), func(t *testing.T) {
			enginetest.Run(t, func(*testing.T) engine.Engine {
				return New(engine.WithBlockSize(bs))
			})
		})
	}
}

func TestMatchesSequential(t *testing.T) {
	img := testutil.NewRNG(31).UniformImage(33, 17)

	seq := sequential.New(engine.WithSeed(9))
	require.NoError(t, seq.Exec(context.Background(), img, 6))
	want, err := seq.Result()
	require.NoError(t, err)

	dev := New(engine.WithSeed(9), engine.WithBlockSize(50))
	require.NoError(t, dev.Exec(context.Background(), img, 6))
	got, err := dev.Result()
	require.NoError(t, err)

	assert.Equal(t, want.Pix, got.Pix)
	assert.Equal(t, seq.Iterations(), dev.Iterations())
}

func TestReleasesDeviceMemory(t *testing.T) {
	h := idevice.NewHost(idevice.Config{Concurrency: 2})
	e := NewWithHost(h, engine.WithBlockSize(16))

	require.NoError(t, e.Exec(context.Background(), testutil.NewRNG(32).UniformImage(20, 20), 4))

	stats := h.Stats()
	assert.Equal(t, int64(0), stats.MemoryUsage)
	assert.Positive(t, stats.PeakMemoryUsage)
	assert.Positive(t, stats.Launches)
	assert.Positive(t, stats.BytesToDevice)
	assert.Positive(t, stats.BytesToHost)
	assert.Same(t, h, e.Host())
}

func TestOutOfMemory(t *testing.T) {
	// 10x10 pixels need 1200 bytes for the pixel buffer alone.
	h := idevice.NewHost(idevice.Config{MemoryBytes: 1024})
	e := NewWithHost(h)
	img := testutil.NewRNG(33).UniformImage(10, 10)

	err := e.Exec(context.Background(), img, 2)
	assert.ErrorIs(t, err, idevice.ErrOutOfMemory)
	assert.ErrorIs(t, err, kmeansbench.ErrEngineExecutionFailure)
	assert.Equal(t, int64(0), h.MemoryUsage())

	_, err = e.Result()
	assert.ErrorIs(t, err, kmeansbench.ErrNoResultAvailable)

	// A smaller image fits.
	require.NoError(t, e.Exec(context.Background(), testutil.NewRNG(33).UniformImage(4, 4), 2))
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Exec(ctx, testutil.NewRNG(34).UniformImage(8, 8), 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, kmeansbench.ErrEngineExecutionFailure)
}
