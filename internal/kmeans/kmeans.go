package kmeans

import (
	"context"
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/distance"
)

// DefaultMaxIterations bounds Lloyd's loop when no option overrides it.
const DefaultMaxIterations = 100

// Channels is the number of components per pixel in the staged representation.
const Channels = distance.Channels

// Stage copies img into an interleaved RGB float32 slice (0–255 per channel).
// The input image is never modified.
func Stage(img image.Image) (pixels []float32, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	pixels = make([]float32, width*height*Channels)

	// Fast path for the common in-memory formats.
	if rgba, ok := img.(*image.RGBA); ok {
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < width; x++ {
				pixels[i] = float32(row[x*4])
				pixels[i+1] = float32(row[x*4+1])
				pixels[i+2] = float32(row[x*4+2])
				i += Channels
			}
		}
		return pixels, width, height
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			pixels[i] = float32(c.R)
			pixels[i+1] = float32(c.G)
			pixels[i+2] = float32(c.B)
			i += Channels
		}
	}
	return pixels, width, height
}

// ValidateK checks 1 <= k <= n.
func ValidateK(k, n int) error {
	if k < 1 || k > n {
		return &kmeansbench.InvalidClusterCountError{K: k, Pixels: n}
	}
	return nil
}

// NewRNG returns the deterministic generator used for seeding and empty
// cluster recovery. The same seed always yields the same sequence.
func NewRNG(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// InitCentroids picks k distinct pixels at random (Forgy initialization).
// It returns the flattened centroids (k * Channels).
func InitCentroids(pixels []float32, k int, rng *rand.Rand) []float32 {
	centroids := make([]float32, k*Channels)
	for i, idx := range SampleDistinct(len(pixels)/Channels, k, rng) {
		copy(centroids[i*Channels:(i+1)*Channels], pixels[idx*Channels:(idx+1)*Channels])
	}
	return centroids
}

// SampleDistinct draws k distinct indices from [0, n) with a partial
// Fisher-Yates shuffle. Only the k touched positions are materialized, so
// the cost is O(k) regardless of n. Requires 0 <= k <= n.
func SampleDistinct(n, k int, rng *rand.Rand) []int {
	out := make([]int, k)
	moved := make(map[int]int, k)
	at := func(i int) int {
		if v, ok := moved[i]; ok {
			return v
		}
		return i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		out[i] = at(j)
		moved[j] = at(i)
	}
	return out
}

// Prepare builds the initial state every engine stages before its timer
// starts: Forgy centroids and an all-unassigned assignment slice.
func Prepare(pixels []float32, k int, rng *rand.Rand) ([]float32, []int32) {
	return InitCentroids(pixels, k, rng), NewAssignments(len(pixels) / Channels)
}

// NewAssignments returns an assignment slice where every pixel is unassigned,
// so the first assignment pass always reports changes.
func NewAssignments(n int) []int32 {
	a := make([]int32, n)
	for i := range a {
		a[i] = -1
	}
	return a
}

// AssignRange assigns pixels [lo, hi) to their nearest centroid and returns
// how many assignments changed. Only assignments[lo:hi] is written.
func AssignRange(pixels, centroids []float32, assignments []int32, lo, hi int) int {
	changed := 0
	for i := lo; i < hi; i++ {
		px := pixels[i*Channels : i*Channels+Channels]
		best, _ := distance.Nearest(px, centroids)
		if assignments[i] != int32(best) {
			assignments[i] = int32(best)
			changed++
		}
	}
	return changed
}

// Accumulator holds per-cluster channel sums and counts.
type Accumulator struct {
	Sums   []float64
	Counts []int
}

// NewAccumulator creates an Accumulator for k clusters.
func NewAccumulator(k int) *Accumulator {
	return &Accumulator{
		Sums:   make([]float64, k*Channels),
		Counts: make([]int, k),
	}
}

// Reset zeroes all sums and counts.
func (a *Accumulator) Reset() {
	clear(a.Sums)
	clear(a.Counts)
}

// AddRange accumulates pixels [lo, hi) into their assigned clusters.
func (a *Accumulator) AddRange(pixels []float32, assignments []int32, lo, hi int) {
	for i := lo; i < hi; i++ {
		c := int(assignments[i])
		o := c * Channels
		a.Sums[o] += float64(pixels[i*Channels])
		a.Sums[o+1] += float64(pixels[i*Channels+1])
		a.Sums[o+2] += float64(pixels[i*Channels+2])
		a.Counts[c]++
	}
}

// Merge adds other into a.
func (a *Accumulator) Merge(other *Accumulator) {
	for i, s := range other.Sums {
		a.Sums[i] += s
	}
	for i, c := range other.Counts {
		a.Counts[i] += c
	}
}

// Update recomputes centroids as cluster means. An empty cluster is
// re-initialized with a random pixel drawn from rng.
func (a *Accumulator) Update(centroids, pixels []float32, rng *rand.Rand) {
	UpdateCentroids(centroids, a.Sums, a.Counts, pixels, rng)
}

// UpdateCentroids is Accumulator.Update over raw sums and counts.
func UpdateCentroids(centroids []float32, sums []float64, counts []int, pixels []float32, rng *rand.Rand) {
	n := len(pixels) / Channels
	for j, count := range counts {
		o := j * Channels
		if count > 0 {
			scale := 1.0 / float64(count)
			for d := 0; d < Channels; d++ {
				centroids[o+d] = float32(sums[o+d] * scale)
			}
		} else {
			// Re-initialize empty cluster with a random point
			idx := rng.IntN(n)
			copy(centroids[o:o+Channels], pixels[idx*Channels:(idx+1)*Channels])
		}
	}
}

// Run executes Lloyd's algorithm sequentially on staged pixels. It returns
// the final centroids, the per-pixel assignments and the number of
// iterations performed.
func Run(ctx context.Context, pixels []float32, k, maxIter int, rng *rand.Rand) ([]float32, []int32, int, error) {
	if err := ValidateK(k, len(pixels)/Channels); err != nil {
		return nil, nil, 0, err
	}

	centroids, assignments := Prepare(pixels, k, rng)
	iter, err := Iterate(ctx, pixels, centroids, assignments, maxIter, rng)
	if err != nil {
		return nil, nil, iter, err
	}
	return centroids, assignments, iter, nil
}

// Iterate runs Lloyd's loop in place on prepared centroids and assignments
// and returns the number of iterations performed.
func Iterate(ctx context.Context, pixels, centroids []float32, assignments []int32, maxIter int, rng *rand.Rand) (int, error) {
	n := len(pixels) / Channels
	acc := NewAccumulator(len(centroids) / Channels)

	iter := 0
	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return iter, err
		}
		iter++

		// Assignment step
		if AssignRange(pixels, centroids, assignments, 0, n) == 0 {
			break
		}

		// Update step
		acc.Reset()
		acc.AddRange(pixels, assignments, 0, n)
		acc.Update(centroids, pixels, rng)
	}
	return iter, nil
}

// Materialize paints every pixel with its centroid's color, rounded and
// clamped to 0–255. The returned image has bounds (0,0)-(width,height).
func Materialize(centroids []float32, assignments []int32, width, height int) *image.RGBA {
	k := len(centroids) / Channels
	palette := make([]color.RGBA, k)
	for j := range palette {
		o := j * Channels
		palette[j] = color.RGBA{
			R: ToUint8(centroids[o]),
			G: ToUint8(centroids[o+1]),
			B: ToUint8(centroids[o+2]),
			A: 0xff,
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, a := range assignments {
		c := palette[a]
		p := out.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	}
	return out
}

// ToUint8 rounds and clamps a channel value.
func ToUint8(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(float64(v)))
	}
}
