package reference

import (
	"context"
	"image/color"
	"testing"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/internal/enginetest"
	"github.com/hupe1980/kmeansbench/testutil"
	"github.com/muesli/clusters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract(t *testing.T) {
	enginetest.Run(t, func(*testing.T) engine.Engine { return New() })
}

func TestUnit8(t *testing.T) {
	assert.Equal(t, uint8(0), unit8(-0.1))
	assert.Equal(t, uint8(0), unit8(0))
	assert.Equal(t, uint8(128), unit8(0.5))
	assert.Equal(t, uint8(12), unit8(12.0/255))
	assert.Equal(t, uint8(255), unit8(1))
	assert.Equal(t, uint8(255), unit8(1.3))
}

func TestPaint(t *testing.T) {
	cc := clusters.Clusters{
		{Center: clusters.Coordinates{0, 0, 0}},
		{Center: clusters.Coordinates{1, 1, 1}},
	}
	obs := clusters.Observations{
		clusters.Coordinates{0.1, 0.1, 0.1},
		clusters.Coordinates{0.9, 0.8, 0.9},
	}

	out := paint(cc, obs, 2, 1)
	assert.Equal(t, color.RGBA{A: 0xff}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 0xff}, out.RGBAAt(1, 0))
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Exec(ctx, testutil.NewRNG(41).UniformImage(4, 4), 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, kmeansbench.ErrEngineExecutionFailure)
}

func TestExecTime(t *testing.T) {
	e := New()
	require.NoError(t, e.Exec(context.Background(), testutil.NewRNG(42).UniformImage(16, 16), 3))

	d, err := e.ExecTime()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
}
