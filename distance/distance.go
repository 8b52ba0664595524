package distance

import "math"

// Channels is the number of color components per pixel.
const Channels = 3

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

// SquaredRGB is SquaredL2 specialized for one pixel and one centroid.
func SquaredRGB(r, g, b, cr, cg, cb float32) float32 {
	dr := r - cr
	dg := g - cg
	db := b - cb
	return dr*dr + dg*dg + db*db
}

// Nearest returns the index of the centroid closest to px and its squared
// distance. centroids is flattened (k * Channels). Ties go to the lowest index.
// Returns -1 if centroids is empty.
func Nearest(px, centroids []float32) (int, float32) {
	r, g, b := px[0], px[1], px[2]
	best := -1
	minDist := float32(math.MaxFloat32)
	for j := 0; j+Channels <= len(centroids); j += Channels {
		d := SquaredRGB(r, g, b, centroids[j], centroids[j+1], centroids[j+2])
		if d < minDist {
			minDist = d
			best = j / Channels
		}
	}
	return best, minDist
}
