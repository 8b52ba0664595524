// Package kmeans implements the building blocks of Lloyd's algorithm over
// interleaved RGB pixel data.
//
// The sequential, parallel and device engines share staging, seeding,
// assignment, accumulation and materialization from here so that they
// differ only in how the work is scheduled.
package kmeans
