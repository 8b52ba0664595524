package quality

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDistinctColors(t *testing.T) {
	img := solid(4, 4, color.RGBA{10, 20, 30, 255})
	assert.Equal(t, uint64(1), DistinctColors(img))

	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})
	img.SetRGBA(2, 0, color.RGBA{255, 255, 255, 255})
	assert.Equal(t, uint64(3), DistinctColors(img))

	assert.Equal(t, []color.RGBA{
		{0, 0, 0, 255},
		{10, 20, 30, 255},
		{255, 255, 255, 255},
	}, Palette(img))
}

func TestEvaluate_Identical(t *testing.T) {
	img := solid(3, 3, color.RGBA{100, 150, 200, 255})
	r, err := Evaluate(img, img)
	require.NoError(t, err)
	assert.Zero(t, r.MSE)
	assert.True(t, math.IsInf(r.PSNR, 1))
	assert.Zero(t, r.MeanDeltaE)
	assert.Equal(t, uint64(1), r.Colors)
}

func TestEvaluate_Difference(t *testing.T) {
	black := solid(2, 2, color.RGBA{0, 0, 0, 255})
	white := solid(2, 2, color.RGBA{255, 255, 255, 255})

	r, err := Evaluate(black, white)
	require.NoError(t, err)
	assert.InDelta(t, 255*255, r.MSE, 1e-9)
	assert.InDelta(t, 0, r.PSNR, 1e-9)
	// Black to white is L 0 -> 100 in Lab.
	assert.InDelta(t, 100, r.MeanDeltaE, 0.5)
	assert.Contains(t, r.String(), "colors=1")
}

func TestEvaluate_OffsetBounds(t *testing.T) {
	ref := solid(2, 2, color.RGBA{1, 2, 3, 255})
	got := image.NewRGBA(image.Rect(10, 10, 12, 12))
	for y := 10; y < 12; y++ {
		for x := 10; x < 12; x++ {
			got.SetRGBA(x, y, color.RGBA{1, 2, 3, 255})
		}
	}
	r, err := Evaluate(ref, got)
	require.NoError(t, err)
	assert.Zero(t, r.MSE)
}

func TestEvaluate_SizeMismatch(t *testing.T) {
	_, err := Evaluate(solid(2, 2, color.RGBA{}), solid(3, 2, color.RGBA{}))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
