package testutil

import (
	"image"
	"image/color"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformImage returns a w×h opaque image with uniform random channels.
func (r *RNG) UniformImage(w, h int) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.rand.Intn(256))
		img.Pix[i+1] = uint8(r.rand.Intn(256))
		img.Pix[i+2] = uint8(r.rand.Intn(256))
		img.Pix[i+3] = 0xff
	}
	return img
}

// NoisyBlocks returns a w×h image split into len(palette) vertical bands of
// the palette colors, each channel perturbed by up to ±noise.
func (r *RNG) NoisyBlocks(w, h int, palette []color.RGBA, noise int) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := palette[x*len(palette)/w]
			img.SetRGBA(x, y, color.RGBA{
				R: jitter(r.rand, base.R, noise),
				G: jitter(r.rand, base.G, noise),
				B: jitter(r.rand, base.B, noise),
				A: 0xff,
			})
		}
	}
	return img
}

func jitter(rng *rand.Rand, v uint8, noise int) uint8 {
	if noise <= 0 {
		return v
	}
	n := int(v) + rng.Intn(2*noise+1) - noise
	return uint8(min(max(n, 0), 255))
}

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Palette4 is a well separated four color palette.
var Palette4 = []color.RGBA{
	{R: 220, G: 30, B: 30, A: 0xff},
	{R: 30, G: 200, B: 40, A: 0xff},
	{R: 20, G: 40, B: 210, A: 0xff},
	{R: 240, G: 230, B: 40, A: 0xff},
}
