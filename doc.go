// Package kmeansbench compares concurrency strategies for k-means color
// clustering over image pixels.
//
// Every strategy implements engine.Engine, so drivers can iterate them
// uniformly through an engine.Registry:
//
//	reg := catalog.Benchmark(catalog.WithSeed(42))
//	for name, e := range reg.All() {
//	    if err := e.Exec(ctx, img, 8); err != nil {
//	        return err
//	    }
//	    d, _ := e.ExecTime()
//	    fmt.Println(name, d)
//	}
//
// # Engines
//
//   - reference: delegates to github.com/muesli/kmeans
//   - sequential: single goroutine Lloyd's loop
//   - parallel: W goroutines with per-worker partial sums
//   - device: grid-of-blocks kernels on a staged device memory model
//
// # Drivers
//
// Package bench sweeps dimension × cluster count × repetition per engine and
// writes one resumable CSV per engine. Package demo runs every engine once on
// one image and composes the results side by side. The cmd/kmeans-benchmark
// and cmd/kmeans-demo programs wrap them.
//
// Finished result files can be uploaded to a local directory, S3 or MinIO
// with package publish; package prommetrics exports run metrics to
// Prometheus.
//
// This package holds the shared error taxonomy, the Logger and the
// MetricsCollector used by all of them.
package kmeansbench
