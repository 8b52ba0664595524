// Package testutil provides testing utilities for kmeansbench.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic random sources and synthetic images with a
// known cluster structure.
//
//	rng := testutil.NewRNG(seed)
//	img := rng.NoisyBlocks(32, 32, palette, 4) // 4 vertical bands, ±4 noise
package testutil
