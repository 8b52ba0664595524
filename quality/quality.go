package quality

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrSizeMismatch is returned when the compared images differ in size.
var ErrSizeMismatch = errors.New("image size mismatch")

// Report holds the quality scores of one result image.
type Report struct {
	// MSE is the mean squared error per channel (0–255 scale).
	MSE float64
	// PSNR is the peak signal-to-noise ratio in dB; +Inf for identical images.
	PSNR float64
	// MeanDeltaE is the mean CIE76 color difference in conventional units
	// (L in 0–100).
	MeanDeltaE float64
	// Colors is the number of distinct RGB colors in the result.
	Colors uint64
}

// String formats the report for logs.
func (r Report) String() string {
	return fmt.Sprintf("mse=%.2f psnr=%.2fdB deltaE=%.2f colors=%d", r.MSE, r.PSNR, r.MeanDeltaE, r.Colors)
}

func rgbKey(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba.RGBAAt(x, y)
	}
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

// DistinctColors counts the distinct RGB colors of img (alpha ignored).
func DistinctColors(img image.Image) uint64 {
	bm := roaring.New()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			bm.Add(rgbKey(rgbaAt(img, x, y)))
		}
	}
	return bm.GetCardinality()
}

// Palette returns the distinct RGB colors of img in ascending 0xRRGGBB order.
func Palette(img image.Image) []color.RGBA {
	bm := roaring.New()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			bm.Add(rgbKey(rgbaAt(img, x, y)))
		}
	}
	out := make([]color.RGBA, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		v := it.Next()
		out = append(out, color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff})
	}
	return out
}

// Evaluate compares got against ref pixel by pixel. Both images are walked
// from their own bounds' origin, so only their sizes must match.
func Evaluate(ref, got image.Image) (Report, error) {
	rb, gb := ref.Bounds(), got.Bounds()
	if rb.Dx() != gb.Dx() || rb.Dy() != gb.Dy() {
		return Report{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, rb.Dx(), rb.Dy(), gb.Dx(), gb.Dy())
	}

	n := rb.Dx() * rb.Dy()
	if n == 0 {
		return Report{PSNR: math.Inf(1)}, nil
	}

	colors := roaring.New()
	labCache := make(map[uint32]colorful.Color)
	lab := func(c color.RGBA) colorful.Color {
		key := rgbKey(c)
		if v, ok := labCache[key]; ok {
			return v
		}
		v, _ := colorful.MakeColor(color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		labCache[key] = v
		return v
	}

	var sqErr, deltaE float64
	for y := 0; y < rb.Dy(); y++ {
		for x := 0; x < rb.Dx(); x++ {
			a := rgbaAt(ref, rb.Min.X+x, rb.Min.Y+y)
			b := rgbaAt(got, gb.Min.X+x, gb.Min.Y+y)

			dr := float64(a.R) - float64(b.R)
			dg := float64(a.G) - float64(b.G)
			db := float64(a.B) - float64(b.B)
			sqErr += dr*dr + dg*dg + db*db

			if a != b {
				deltaE += lab(a).DistanceLab(lab(b))
			}
			colors.Add(rgbKey(b))
		}
	}

	mse := sqErr / float64(n*3)
	psnr := math.Inf(1)
	if mse > 0 {
		psnr = 10 * math.Log10(255*255/mse)
	}

	return Report{
		MSE:        mse,
		PSNR:       psnr,
		MeanDeltaE: 100 * deltaE / float64(n),
		Colors:     colors.GetCardinality(),
	}, nil
}
