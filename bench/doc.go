// Package bench times clustering engines over a grid of image dimensions and
// cluster counts.
//
// For every engine of a registry, in registration order, the Runner writes
// <OutputDir>/<Name>.csv with the header "dim,clusters,time" and one row per
// run. Rows are flushed as they are produced. An engine whose file already
// exists is skipped, so an interrupted sweep resumes by rerunning it; delete
// a partial file to measure that engine again.
//
// A failing or panicking engine stops only its own sweep:
//
//	report, err := bench.Run(ctx, catalog.Benchmark(), bench.Config{
//	    Dims:        bench.Range{Min: 100, Max: 400, Step: 100},
//	    Clusters:    bench.Range{Min: 2, Max: 8, Step: 2},
//	    Repetitions: 2,
//	    OutputDir:   "results/",
//	})
//	for _, e := range report.Failed() {
//	    log.Println(e.Name, e.Err)
//	}
package bench
