// Command kmeans-demo clusters one image with every engine and writes the
// results side by side.
//
// Usage:
//
//	kmeans-demo [flags] imagePath clusterCount outputImagePath
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/demo"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/catalog"
	"github.com/hupe1980/kmeansbench/imageio"
	"github.com/hupe1980/kmeansbench/internal/cli"
)

const (
	exitOK      = 0
	exitFailure = -1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes the demo. A nil viewer selects demo.BrowserViewer.
func run(ctx context.Context, args []string, stderr io.Writer, viewer demo.Viewer) int {
	fs := flag.NewFlagSet("kmeans-demo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	display := fs.Bool("display", true, "open the written image")
	seed := fs.Int64("seed", engine.DefaultSeed, "centroid initialization seed")
	maxIter := fs.Int("max-iter", 0, "iteration bound (0 = default)")
	workers := fs.Int("workers", 0, "parallel engine workers (0 = GOMAXPROCS)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text or json")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: kmeans-demo [flags] imagePath clusterCount outputImagePath")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}
	if fs.NArg() < 3 {
		fs.Usage()
		return exitFailure
	}
	inPath, outPath := fs.Arg(0), fs.Arg(2)

	k, err := cli.ParseInt("clusterCount", fs.Arg(1))
	if err != nil {
		var ae *kmeansbench.ArgumentError
		if errors.As(err, &ae) {
			fmt.Fprintf(stderr, "%s%s (%s=%q)\n", cli.MalformedIntPrefix, ae.Reason, ae.Name, ae.Value)
		} else {
			fmt.Fprintln(stderr, err)
		}
		return exitFailure
	}

	img, err := imageio.Load(inPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	logger := kmeansbench.LoggerFromEnv(*logLevel, *logFormat)

	reg := catalog.Demo(
		catalog.WithSeed(*seed),
		catalog.WithMaxIterations(*maxIter),
		catalog.WithWorkers(*workers),
	)
	defer func() {
		if err := engine.CloseAll(reg); err != nil {
			logger.WarnContext(ctx, "closing engines", "error", err)
		}
	}()

	opts := []demo.Option{
		demo.WithLogger(logger),
		demo.WithDisplay(*display),
	}
	if viewer != nil {
		opts = append(opts, demo.WithViewer(viewer))
	}

	comp, err := demo.Run(ctx, reg, img, k, outPath, opts...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	for _, p := range comp.Panes {
		logger.InfoContext(ctx, "result",
			"engine", p.Name,
			"seconds", p.ExecTime.Seconds(),
			"quality", p.Quality.String(),
		)
	}
	return exitOK
}
