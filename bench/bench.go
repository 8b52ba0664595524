package bench

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/imageio"
	"github.com/hupe1980/kmeansbench/internal/cpuinfo"
	"github.com/hupe1980/kmeansbench/publish"
	"golang.org/x/time/rate"
)

// ImageSource returns the input image for one dimension. It is called once
// per engine and dimension and must return the same pixels for the same dim.
type ImageSource func(dim int) image.Image

// RandomImages returns dim×dim uniform random images derived from seed, so
// every engine sees the same pixels for a given dimension.
func RandomImages(seed int64) ImageSource {
	return func(dim int) image.Image {
		return imageio.Random(seed+int64(dim), dim, dim)
	}
}

type options struct {
	logger    *kmeansbench.Logger
	metrics   kmeansbench.MetricsCollector
	publisher *publish.Publisher
	images    ImageSource
	progress  time.Duration
}

// Option configures a Runner.
type Option func(*options)

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *kmeansbench.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metrics collector. Default: NoopMetricsCollector.
func WithMetrics(m kmeansbench.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPublisher uploads every completed or skipped result file.
func WithPublisher(p *publish.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithImageSource replaces the random input images.
func WithImageSource(src ImageSource) Option {
	return func(o *options) {
		o.images = src
	}
}

// WithProgressInterval sets the minimum time between progress log lines
// within one engine's sweep. Default: 5s.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		o.progress = d
	}
}

// Runner sweeps engines over a grid of dimensions and cluster counts.
type Runner struct {
	cfg  Config
	opts options
}

// New validates cfg and creates a Runner.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:   kmeansbench.NoopLogger(),
		metrics:  kmeansbench.NoopMetricsCollector{},
		progress: 5 * time.Second,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.images == nil {
		o.images = RandomImages(cfg.Seed)
	}

	return &Runner{
		cfg:  cfg,
		opts: o,
	}, nil
}

// Run is shorthand for New(cfg, opts...) followed by Runner.Run.
func Run(ctx context.Context, reg *engine.Registry, cfg Config, opts ...Option) (Report, error) {
	r, err := New(cfg, opts...)
	if err != nil {
		return Report{}, err
	}
	return r.Run(ctx, reg)
}

// Path returns the result file of the named engine.
func (r *Runner) Path(name string) string {
	return filepath.Join(r.cfg.OutputDir, name+".csv")
}

// Run sweeps every engine of reg in registration order. A failing engine is
// recorded in the report and the sweep continues with the next one. The
// returned error is non-nil only when ctx ends the sweep early.
func (r *Runner) Run(ctx context.Context, reg *engine.Registry) (Report, error) {
	host := cpuinfo.Host()
	report := Report{
		Host:    host.String(),
		Started: time.Now().UTC(),
		Config:  r.cfg,
	}
	if r.opts.publisher != nil {
		report.RunID = r.opts.publisher.RunID()
	}

	log := r.opts.logger
	log.InfoContext(ctx, "benchmark started",
		"host", report.Host,
		"engines", reg.Len(),
		"rows_per_engine", r.cfg.RowsPerEngine(),
		"output", r.cfg.OutputDir,
	)

	for name, e := range reg.All() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		er := r.runEngine(ctx, name, e)
		if er.Status != StatusFailed && r.opts.publisher != nil {
			rcpt, err := r.opts.publisher.Publish(ctx, name, er.Path, er.Rows)
			if err == nil {
				er.Publish = &rcpt
			}
		}
		report.Engines = append(report.Engines, er)

		if er.Status == StatusFailed && ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	if r.opts.publisher != nil {
		if _, err := r.opts.publisher.PublishReport(ctx, report); err != nil {
			log.WarnContext(ctx, "report not published", "error", err)
		}
	}
	return report, nil
}

func (r *Runner) runEngine(ctx context.Context, name string, e engine.Engine) EngineReport {
	path := r.Path(name)
	er := EngineReport{Name: name, Path: path}
	log := r.opts.logger.WithEngine(name)

	if f, err := os.Open(path); err == nil {
		rows, rerr := ReadRows(f)
		_ = f.Close()
		if rerr != nil {
			log.WarnContext(ctx, "existing result file unreadable", "file", path, "error", rerr)
		}
		er.Status = StatusSkipped
		er.Rows = len(rows)
		er.Cells = Summarize(rows)
		log.LogSkip(ctx, name, path)
		r.opts.metrics.RecordSkip(name)
		return er
	}

	start := time.Now()
	rows, err := r.sweep(ctx, log, name, e, path)
	er.Elapsed = time.Since(start)
	er.Rows = len(rows)
	er.Cells = Summarize(rows)
	if err != nil {
		er.Status = StatusFailed
		er.Err = err
		er.Error = err.Error()
		r.opts.metrics.RecordFailure(name, err)
	}
	log.LogEngineDone(ctx, name, len(rows), er.Elapsed, err)
	return er
}

func (r *Runner) sweep(ctx context.Context, log *kmeansbench.Logger, name string, e engine.Engine, path string) (rows []Row, err error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "creating result file", "file", path)
	w, err := createRowWriter(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	progress := rate.Sometimes{First: 1, Interval: r.opts.progress}
	total := r.cfg.RowsPerEngine()

	for _, dim := range r.cfg.Dims.Values() {
		// Dimension is the outer loop, so only the current input is held.
		img := r.opts.images(dim)
		dimLog := log.WithDimension(dim)
		dimLog.InfoContext(ctx, fmt.Sprintf("%d x %d...", dim, dim))

		for _, k := range r.cfg.Clusters.Values() {
			for rep := 0; rep <= r.cfg.Repetitions; rep++ {
				if err := ctx.Err(); err != nil {
					return rows, kmeansbench.NewEngineError(name, dim, k, err)
				}

				d, err := r.exec(ctx, e, img, k)
				r.opts.metrics.RecordExec(name, dim, k, d, err)
				log.LogExec(ctx, name, dim, k, d, err)
				if err != nil {
					return rows, engineError(name, dim, k, err)
				}

				row := Row{Dim: dim, Clusters: k, Time: d.Seconds()}
				if err := w.Append(row); err != nil {
					return rows, fmt.Errorf("write %s: %w", path, err)
				}
				rows = append(rows, row)

				progress.Do(func() {
					dimLog.InfoContext(ctx, "progress", "rows", len(rows), "total", total)
				})
			}
		}
	}
	return rows, nil
}

// exec runs one clustering and reads its timing, turning a panic inside the
// engine into an error.
func (r *Runner) exec(ctx context.Context, e engine.Engine, img image.Image, k int) (d time.Duration, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := e.Exec(ctx, img, k); err != nil {
		return 0, err
	}
	return e.ExecTime()
}

// engineError attaches the sweep cell to err. An EngineError raised by the
// engine itself is unwrapped first so its cause is not reported twice.
func engineError(name string, dim, k int, err error) error {
	var ee *kmeansbench.EngineError
	if errors.As(err, &ee) && ee.Engine == name {
		if cause := errors.Unwrap(ee); cause != nil {
			err = cause
		}
	}
	return kmeansbench.NewEngineError(name, dim, k, err)
}
