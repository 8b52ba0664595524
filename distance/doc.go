// Package distance provides the color-space distance used by every engine.
//
// Only squared Euclidean distance is supported. Pixels and centroids are
// 3-component RGB vectors in the 0–255 range.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	d = distance.SquaredRGB(px[0], px[1], px[2], c[0], c[1], c[2])
//	i, d := distance.Nearest(px, centroids)
package distance
