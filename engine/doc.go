// Package engine defines the clustering backend contract shared by every
// concurrency strategy, and the ordered registry the drivers iterate.
//
// # Contract
//
// An Engine runs Lloyd's k-means over the pixels of an image and keeps the
// outcome of its most recent successful run:
//
//	if err := e.Exec(ctx, img, k); err != nil {
//	    return err
//	}
//	out, _ := e.Result()   // same size as img, at most k distinct colors
//	d, _ := e.ExecTime()   // clustering time only
//
// Result and ExecTime return kmeansbench.ErrNoResultAvailable before the first
// successful Exec. Exec returns kmeansbench.ErrInvalidClusterCount when k is
// outside [1, pixel count]; a failed Exec leaves the previous result intact.
//
// # Timing boundary
//
// Every implementation starts its timer once the input is staged in its
// working representation and stops it when the iteration loop ends, before
// the result image is materialized. This keeps timings comparable across
// engines.
//
// # Implementations
//
//   - engine/reference: github.com/muesli/kmeans baseline
//   - engine/sequential: single goroutine
//   - engine/parallel: fixed worker pool, per-worker partial sums
//   - engine/device: kernel launches over a staged device memory model
//
// engine/catalog assembles the standard registries used by the drivers.
package engine
