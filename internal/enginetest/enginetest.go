// Package enginetest runs the engine.Engine contract against an implementation.
//
// Each engine package calls Run from its own tests:
//
//	func TestContract(t *testing.T) {
//	    enginetest.Run(t, func(t *testing.T) engine.Engine { return New() })
//	}
package enginetest

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/quality"
	"github.com/hupe1980/kmeansbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates a fresh engine for one subtest. Engines implementing
// io.Closer are closed when the subtest ends.
type Factory func(t *testing.T) engine.Engine

func newEngine(t *testing.T, f Factory) engine.Engine {
	t.Helper()
	e := f(t)
	t.Cleanup(func() { _ = engine.Close(e) })
	return e
}

// Run executes the contract suite.
func Run(t *testing.T, f Factory) {
	t.Run("NoResultBeforeExec", func(t *testing.T) {
		e := newEngine(t, f)

		_, err := e.Result()
		assert.ErrorIs(t, err, kmeansbench.ErrNoResultAvailable)
		_, err = e.ExecTime()
		assert.ErrorIs(t, err, kmeansbench.ErrNoResultAvailable)
	})

	t.Run("InvalidClusterCount", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.NewRNG(1).UniformImage(4, 3)

		for _, k := range []int{0, -2, 13} {
			err := e.Exec(context.Background(), img, k)
			assert.ErrorIs(t, err, kmeansbench.ErrInvalidClusterCount, "k=%d", k)
		}

		_, err := e.Result()
		assert.ErrorIs(t, err, kmeansbench.ErrNoResultAvailable)
	})

	t.Run("ResultShapeAndPalette", func(t *testing.T) {
		e := newEngine(t, f)
		rng := testutil.NewRNG(2)

		for _, tc := range []struct{ w, h, k int }{
			{1, 1, 1},
			{5, 3, 1},
			{8, 8, 2},
			{16, 9, 5},
			{6, 4, 24},
		} {
			img := rng.UniformImage(tc.w, tc.h)
			require.NoError(t, e.Exec(context.Background(), img, tc.k), "%+v", tc)

			out, err := e.Result()
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tc.w, tc.h), out.Bounds(), "%+v", tc)
			assert.LessOrEqual(t, quality.DistinctColors(out), uint64(tc.k), "%+v", tc)

			d, err := e.ExecTime()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, d.Seconds(), 0.0)
		}
	})

	t.Run("ExecTimeWithinExec", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.Solid(256, 256, color.RGBA{R: 90, G: 60, B: 30, A: 0xff})

		start := time.Now()
		require.NoError(t, e.Exec(context.Background(), img, 1))
		wall := time.Since(start)

		d, err := e.ExecTime()
		require.NoError(t, err)
		assert.LessOrEqual(t, d, wall)
	})

	t.Run("InputNotMutated", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.NewRNG(3).UniformImage(12, 7)
		before := append([]uint8(nil), img.Pix...)

		require.NoError(t, e.Exec(context.Background(), img, 3))
		assert.Equal(t, before, img.Pix)

		out, err := e.Result()
		require.NoError(t, err)
		assert.NotSame(t, img, out)
	})

	t.Run("SeparatesWellSeparatedColors", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.Solid(10, 10, color.RGBA{A: 0xff})
		for y := 0; y < 10; y++ {
			for x := 5; x < 10; x++ {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 0xff})
			}
		}

		require.NoError(t, e.Exec(context.Background(), img, 2))
		out, err := e.Result()
		require.NoError(t, err)

		assert.Equal(t, uint64(2), quality.DistinctColors(out))
		assert.Equal(t, img.RGBAAt(0, 0), out.RGBAAt(0, 0))
		assert.Equal(t, img.RGBAAt(9, 9), out.RGBAAt(9, 9))
	})

	t.Run("RepeatedCallsOverwriteResult", func(t *testing.T) {
		e := newEngine(t, f)
		rng := testutil.NewRNG(4)

		require.NoError(t, e.Exec(context.Background(), rng.UniformImage(6, 6), 2))
		first, err := e.Result()
		require.NoError(t, err)

		require.NoError(t, e.Exec(context.Background(), rng.UniformImage(9, 3), 4))
		second, err := e.Result()
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 6, 6), first.Bounds())
		assert.Equal(t, image.Rect(0, 0, 9, 3), second.Bounds())
	})

	t.Run("FailedExecKeepsPreviousResult", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.NewRNG(5).UniformImage(4, 4)

		require.NoError(t, e.Exec(context.Background(), img, 2))
		prev, err := e.Result()
		require.NoError(t, err)

		require.Error(t, e.Exec(context.Background(), img, 17))
		cur, err := e.Result()
		require.NoError(t, err)
		assert.Same(t, prev, cur)
	})

	t.Run("OffsetBounds", func(t *testing.T) {
		e := newEngine(t, f)
		src := testutil.NewRNG(6).UniformImage(10, 10)
		sub := src.SubImage(image.Rect(3, 2, 8, 6))

		require.NoError(t, e.Exec(context.Background(), sub, 3))
		out, err := e.Result()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 5, 4), out.Bounds())
	})

	t.Run("KEqualsPixelCount", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.NewRNG(7).NoisyBlocks(4, 1, testutil.Palette4, 0)

		require.NoError(t, e.Exec(context.Background(), img, 4))
		out, err := e.Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, quality.DistinctColors(out), uint64(4))
	})

	t.Run("RecoversBlockPalette", func(t *testing.T) {
		e := newEngine(t, f)
		img := testutil.NewRNG(8).NoisyBlocks(32, 16, testutil.Palette4, 4)

		require.NoError(t, e.Exec(context.Background(), img, 4))
		out, err := e.Result()
		require.NoError(t, err)

		report, err := quality.Evaluate(img, out)
		require.NoError(t, err)
		assert.LessOrEqual(t, report.Colors, uint64(4))
		assert.Positive(t, report.PSNR)
	})

	t.Run("UniformImage", func(t *testing.T) {
		e := newEngine(t, f)
		c := color.RGBA{R: 12, G: 34, B: 56, A: 0xff}
		img := testutil.Solid(5, 5, c)

		require.NoError(t, e.Exec(context.Background(), img, 3))
		out, err := e.Result()
		require.NoError(t, err)
		assert.Equal(t, c, out.RGBAAt(2, 2))
	})
}
