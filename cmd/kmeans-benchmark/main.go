// Command kmeans-benchmark times every clustering engine over a grid of image
// sizes and cluster counts and writes one CSV per engine.
//
// Usage:
//
//	kmeans-benchmark [flags] dimMin dimMax dimStep clustersMin clustersMax clustersStep repetitions outputDir
//
// Engines whose CSV already exists in outputDir are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/bench"
	"github.com/hupe1980/kmeansbench/blobstore/s3"
	"github.com/hupe1980/kmeansbench/codec"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/catalog"
	"github.com/hupe1980/kmeansbench/internal/cli"
	idevice "github.com/hupe1980/kmeansbench/internal/device"
	"github.com/hupe1980/kmeansbench/internal/resource"
	"github.com/hupe1980/kmeansbench/prommetrics"
	"github.com/hupe1980/kmeansbench/publish"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var positionals = []string{"dimMin", "dimMax", "dimStep", "clustersMin", "clustersMax", "clustersStep", "repetitions"}

type flags struct {
	seed         int64
	maxIter      int
	engines      string
	deviceMemory int64
	publishURL   string
	compression  string
	reportCodec  string
	ledgerTable  string
	publishRate  int64
	awsRegion    string
	awsEndpoint  string
	progress     time.Duration
	metricsFile  string
	metricsAddr  string
	logLevel     string
	logFormat    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("kmeans-benchmark", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f flags
	fs.Int64Var(&f.seed, "seed", engine.DefaultSeed, "centroid initialization and input image seed")
	fs.IntVar(&f.maxIter, "max-iter", 0, "iteration bound per run (0 = default)")
	fs.StringVar(&f.engines, "engines", "", "comma separated engine names to run (default all)")
	fs.Int64Var(&f.deviceMemory, "device-memory", idevice.DefaultMemoryBytes, "device memory budget in bytes (<0 = unlimited)")
	fs.StringVar(&f.publishURL, "publish", "", "publish finished CSVs to file://, s3:// or minio:// URL")
	fs.StringVar(&f.compression, "codec", "none", "publish compression: none, zstd or lz4")
	fs.StringVar(&f.reportCodec, "report-codec", "go-json", "run report encoding: json or go-json")
	fs.StringVar(&f.ledgerTable, "ledger-table", "", "DynamoDB table recording publications (s3 only)")
	fs.Int64Var(&f.publishRate, "publish-rate", 0, "publish throughput limit in bytes/s (0 = unlimited)")
	fs.StringVar(&f.awsRegion, "aws-region", "", "AWS region for s3:// publishing and the ledger")
	fs.StringVar(&f.awsEndpoint, "aws-endpoint", "", "custom S3/DynamoDB endpoint (e.g. LocalStack)")
	fs.DurationVar(&f.progress, "progress", 5*time.Second, "minimum interval between progress log lines")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics on exit")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "text or json")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: kmeans-benchmark [flags] dimMin dimMax dimStep clustersMin clustersMax clustersStep repetitions outputDir")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() < len(positionals)+1 {
		fs.Usage()
		return exitUsage
	}

	var ints [7]int
	for i, name := range positionals {
		v, err := cli.ParseInt(name, fs.Arg(i))
		if err != nil {
			var ae *kmeansbench.ArgumentError
			if errors.As(err, &ae) {
				fmt.Fprintf(stderr, "%s%s (%s=%q)\n", cli.MalformedIntPrefix, ae.Reason, ae.Name, ae.Value)
			} else {
				fmt.Fprintln(stderr, err)
			}
			return exitError
		}
		ints[i] = v
	}

	cfg := bench.Config{
		Dims:        bench.Range{Min: ints[0], Max: ints[1], Step: ints[2]},
		Clusters:    bench.Range{Min: ints[3], Max: ints[4], Step: ints[5]},
		Repetitions: ints[6],
		OutputDir:   cli.NormalizeDir(fs.Arg(7)),
		Seed:        f.seed,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	logger := kmeansbench.LoggerFromEnv(f.logLevel, f.logFormat)
	if err := benchmark(ctx, cfg, f, logger); err != nil {
		logger.ErrorContext(ctx, "benchmark failed", "error", err)
		return exitError
	}
	return exitOK
}

func benchmark(ctx context.Context, cfg bench.Config, f flags, logger *kmeansbench.Logger) error {
	host := idevice.NewHost(idevice.Config{MemoryBytes: f.deviceMemory})
	all := catalog.Benchmark(
		catalog.WithSeed(f.seed),
		catalog.WithMaxIterations(f.maxIter),
		catalog.WithHost(host),
	)
	defer func() {
		if err := engine.CloseAll(all); err != nil {
			logger.WarnContext(ctx, "closing engines", "error", err)
		}
	}()

	reg := all
	if names := cli.SplitList(f.engines); len(names) > 0 {
		sub, err := all.Filter(names...)
		if err != nil {
			return err
		}
		reg = sub
	}

	metrics := prommetrics.New()
	if f.metricsAddr != "" {
		srv := &http.Server{Addr: f.metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WarnContext(ctx, "metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		logger.InfoContext(ctx, "serving metrics", "addr", f.metricsAddr)
	}

	opts := []bench.Option{
		bench.WithLogger(logger),
		bench.WithMetrics(metrics),
		bench.WithProgressInterval(f.progress),
	}

	if f.publishURL != "" {
		pub, err := openPublisher(ctx, f, logger)
		if err != nil {
			return err
		}
		opts = append(opts, bench.WithPublisher(pub))
	}

	report, err := bench.Run(ctx, reg, cfg, opts...)

	for _, e := range report.Engines {
		logger.InfoContext(ctx, "engine summary",
			"engine", e.Name,
			"status", e.Status.String(),
			"rows", e.Rows,
			"file", e.Path,
		)
	}
	if failed := report.Failed(); len(failed) > 0 {
		logger.WarnContext(ctx, "some engines failed", "count", len(failed))
	}
	stats := host.Stats()
	logger.DebugContext(ctx, "device stats",
		"launches", stats.Launches,
		"bytes_to_device", stats.BytesToDevice,
		"bytes_to_host", stats.BytesToHost,
		"peak_memory", stats.PeakMemoryUsage,
	)

	if f.metricsFile != "" {
		if werr := metrics.WriteToTextfile(f.metricsFile); werr != nil {
			logger.WarnContext(ctx, "metrics file not written", "file", f.metricsFile, "error", werr)
		}
	}
	return err
}

func openPublisher(ctx context.Context, f flags, logger *kmeansbench.Logger) (*publish.Publisher, error) {
	comp, err := codec.CompressionByName(f.compression)
	if err != nil {
		return nil, err
	}
	report, err := codec.ByName(f.reportCodec)
	if err != nil {
		return nil, err
	}

	opts := []publish.Option{
		publish.WithCompression(comp),
		publish.WithReportCodec(report),
		publish.WithLogger(logger),
		publish.WithResourceController(resource.NewController(resource.Config{
			IOLimitBytesPerSec: f.publishRate,
		})),
	}

	var awsOpts []s3.Option
	if f.awsRegion != "" {
		awsOpts = append(awsOpts, s3.WithRegion(f.awsRegion))
	}
	if f.awsEndpoint != "" {
		awsOpts = append(awsOpts, s3.WithEndpoint(f.awsEndpoint))
	}
	if len(awsOpts) > 0 {
		opts = append(opts, publish.WithS3Options(awsOpts...))
	}

	if f.ledgerTable != "" {
		ledger, err := s3.NewLedger(ctx, f.ledgerTable, awsOpts...)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		opts = append(opts, publish.WithRecorder(ledger))
	}

	return publish.Open(ctx, f.publishURL, opts...)
}
