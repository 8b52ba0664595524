package bench

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/blobstore"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/engine/sequential"
	"github.com/hupe1980/kmeansbench/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEngine records calls and can fail or panic on a given call.
type stubEngine struct {
	calls   int
	failAt  int
	panicAt int
	last    *image.RGBA
}

func (s *stubEngine) Exec(_ context.Context, img image.Image, k int) error {
	s.calls++
	if s.calls == s.failAt {
		return kmeansbench.NewEngineError("stub", 0, 0, errors.New("device lost"))
	}
	if s.calls == s.panicAt {
		panic("index out of range")
	}
	b := img.Bounds()
	s.last = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	return nil
}

func (s *stubEngine) Result() (*image.RGBA, error) {
	if s.last == nil {
		return nil, kmeansbench.ErrNoResultAvailable
	}
	return s.last, nil
}

func (s *stubEngine) ExecTime() (time.Duration, error) {
	if s.last == nil {
		return 0, kmeansbench.ErrNoResultAvailable
	}
	return time.Millisecond, nil
}

func gridConfig(dir string) Config {
	return Config{
		Dims:        Range{Min: 4, Max: 8, Step: 2},
		Clusters:    Range{Min: 2, Max: 4, Step: 1},
		Repetitions: 1,
		OutputDir:   dir,
		Seed:        7,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRange_Values(t *testing.T) {
	assert.Equal(t, []int{1, 3, 5}, Range{Min: 1, Max: 5, Step: 2}.Values())
	assert.Equal(t, []int{1, 3}, Range{Min: 1, Max: 4, Step: 2}.Values())
	assert.Equal(t, []int{7}, Range{Min: 7, Max: 7, Step: 3}.Values())
	assert.Empty(t, Range{Min: 5, Max: 1, Step: 1}.Values())
	assert.Empty(t, Range{Min: 1, Max: 5, Step: 0}.Values())

	// Stepping past math.MaxInt must stop instead of wrapping around.
	assert.Equal(t, []int{math.MaxInt - 1}, Range{Min: math.MaxInt - 1, Max: math.MaxInt, Step: 2}.Values())
	assert.Equal(t, []int{math.MaxInt - 2, math.MaxInt}, Range{Min: math.MaxInt - 2, Max: math.MaxInt, Step: 2}.Values())
	assert.Equal(t, []int{1, math.MaxInt/2 + 1}, Range{Min: 1, Max: math.MaxInt, Step: math.MaxInt / 2}.Values())
	assert.Equal(t, math.MaxInt, Range{Min: 1, Max: math.MaxInt, Step: 1}.Len())
}

func TestConfig_Validate(t *testing.T) {
	valid := gridConfig("out/")
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		axis   string
	}{
		{"zero dim step", func(c *Config) { c.Dims.Step = 0 }, "dim"},
		{"negative cluster step", func(c *Config) { c.Clusters.Step = -1 }, "clusters"},
		{"dim min zero", func(c *Config) { c.Dims.Min = 0 }, "dim"},
		{"cluster min zero", func(c *Config) { c.Clusters.Min = 0 }, "clusters"},
		{"negative repetitions", func(c *Config) { c.Repetitions = -1 }, "repetitions"},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "outputDir"},
		{"dim beyond max", func(c *Config) { c.Dims = Range{Min: math.MaxInt - 1, Max: math.MaxInt, Step: 2} }, "dim"},
		{"too many dims", func(c *Config) { c.Dims = Range{Min: 1, Max: math.MaxInt, Step: 1} }, "dim"},
		{"too many clusters", func(c *Config) { c.Clusters = Range{Min: 1, Max: math.MaxInt, Step: 1} }, "clusters"},
		{"huge repetitions", func(c *Config) { c.Repetitions = math.MaxInt }, "repetitions"},
		{"too many rows", func(c *Config) {
			c.Clusters = Range{Min: 1, Max: MaxAxisPoints, Step: 1}
			c.Repetitions = MaxRowsPerEngine / MaxAxisPoints
		}, "repetitions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, kmeansbench.ErrInvalidSweepParameters)

			var se *kmeansbench.SweepError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.axis, se.Axis)
		})
	}

	t.Run("min above max is valid", func(t *testing.T) {
		cfg := valid
		cfg.Dims = Range{Min: 10, Max: 5, Step: 1}
		require.NoError(t, cfg.Validate())
		assert.Zero(t, cfg.RowsPerEngine())
	})
}

func TestRun_WritesGrid(t *testing.T) {
	dir := t.TempDir()
	reg := engine.NewRegistry()
	reg.MustRegister("Sequential", sequential.New(engine.WithSeed(1)))

	metrics := &kmeansbench.BasicMetricsCollector{}
	report, err := Run(t.Context(), reg, gridConfig(dir), WithMetrics(metrics))
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(dir, "Sequential.csv"))
	require.Len(t, lines, 19)
	assert.Equal(t, "dim,clusters,time", lines[0])

	rows, err := ReadFile(filepath.Join(dir, "Sequential.csv"))
	require.NoError(t, err)
	require.Len(t, rows, 18)

	// dim is the outer loop, k the inner one, repetitions innermost.
	i := 0
	for _, dim := range []int{4, 6, 8} {
		for _, k := range []int{2, 3, 4} {
			for range 2 {
				assert.Equal(t, dim, rows[i].Dim)
				assert.Equal(t, k, rows[i].Clusters)
				assert.GreaterOrEqual(t, rows[i].Time, 0.0)
				i++
			}
		}
	}

	require.Len(t, report.Engines, 1)
	er := report.Engines[0]
	assert.Equal(t, StatusCompleted, er.Status)
	assert.Equal(t, 18, er.Rows)
	assert.Len(t, er.Cells, 9)
	assert.Equal(t, 2, er.Cells[0].Samples)
	assert.Equal(t, int64(18), metrics.GetStats().ExecCount)
}

func TestRun_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := gridConfig(dir)

	first := &stubEngine{}
	reg := engine.NewRegistry()
	reg.MustRegister("Stub", first)
	_, err := Run(t.Context(), reg, cfg)
	require.NoError(t, err)
	require.Equal(t, 18, first.calls)

	before, err := os.ReadFile(filepath.Join(dir, "Stub.csv"))
	require.NoError(t, err)

	second := &stubEngine{}
	reg = engine.NewRegistry()
	reg.MustRegister("Stub", second)

	metrics := &kmeansbench.BasicMetricsCollector{}
	report, err := Run(t.Context(), reg, cfg, WithMetrics(metrics))
	require.NoError(t, err)

	assert.Zero(t, second.calls)
	assert.Equal(t, StatusSkipped, report.Engines[0].Status)
	assert.Equal(t, 18, report.Engines[0].Rows)
	assert.Equal(t, int64(1), metrics.GetStats().SkipCount)

	after, err := os.ReadFile(filepath.Join(dir, "Stub.csv"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_FailureIsolation(t *testing.T) {
	dir := t.TempDir()

	failing := &stubEngine{failAt: 5}
	panicking := &stubEngine{panicAt: 3}
	healthy := &stubEngine{}

	reg := engine.NewRegistry()
	reg.MustRegister("Failing", failing)
	reg.MustRegister("Panicking", panicking)
	reg.MustRegister("Healthy", healthy)

	metrics := &kmeansbench.BasicMetricsCollector{}
	report, err := Run(t.Context(), reg, gridConfig(dir), WithMetrics(metrics))
	require.NoError(t, err)
	require.Len(t, report.Engines, 3)

	fail := report.Engines[0]
	assert.Equal(t, StatusFailed, fail.Status)
	assert.Equal(t, 4, fail.Rows)
	require.ErrorIs(t, fail.Err, kmeansbench.ErrEngineExecutionFailure)
	var ee *kmeansbench.EngineError
	require.ErrorAs(t, fail.Err, &ee)
	assert.Equal(t, "Failing", ee.Engine)
	assert.Equal(t, 4, ee.Dim)
	assert.Equal(t, 4, ee.Clusters)
	assert.Contains(t, fail.Error, "device lost")
	assert.Len(t, readLines(t, fail.Path), 5)

	pan := report.Engines[1]
	assert.Equal(t, StatusFailed, pan.Status)
	assert.Equal(t, 2, pan.Rows)
	require.ErrorIs(t, pan.Err, kmeansbench.ErrEngineExecutionFailure)
	assert.Contains(t, pan.Error, "panic")
	assert.Len(t, readLines(t, pan.Path), 3)

	assert.Equal(t, StatusCompleted, report.Engines[2].Status)
	assert.Equal(t, 18, healthy.calls)
	assert.Len(t, report.Failed(), 2)
	assert.Equal(t, int64(2), metrics.GetStats().FailureCount)
}

func TestRun_EmptyAxisWritesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := gridConfig(dir)
	cfg.Clusters = Range{Min: 5, Max: 2, Step: 1}

	stub := &stubEngine{}
	reg := engine.NewRegistry()
	reg.MustRegister("Stub", stub)

	report, err := Run(t.Context(), reg, cfg)
	require.NoError(t, err)
	assert.Zero(t, stub.calls)
	assert.Equal(t, StatusCompleted, report.Engines[0].Status)
	assert.Equal(t, []string{"dim,clusters,time"}, readLines(t, filepath.Join(dir, "Stub.csv")))
}

func TestRun_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")
	reg := engine.NewRegistry()
	reg.MustRegister("Stub", &stubEngine{})

	_, err := Run(t.Context(), reg, gridConfig(dir))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "Stub.csv"))
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := gridConfig(t.TempDir())
	cfg.Dims.Step = 0

	_, err := Run(t.Context(), engine.NewRegistry(), cfg)
	require.ErrorIs(t, err, kmeansbench.ErrInvalidSweepParameters)
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	first := &stubEngine{}
	second := &stubEngine{}
	reg := engine.NewRegistry()
	reg.MustRegister("First", first)
	reg.MustRegister("Second", second)

	report, err := Run(ctx, reg, gridConfig(dir))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, first.calls)
	assert.Zero(t, second.calls)
	assert.Empty(t, report.Engines)
}

func TestRun_SameImagePerDimension(t *testing.T) {
	var seen []*image.RGBA
	src := func(dim int) image.Image {
		img := RandomImages(3)(dim).(*image.RGBA)
		seen = append(seen, img)
		return img
	}

	reg := engine.NewRegistry()
	reg.MustRegister("A", &stubEngine{})
	reg.MustRegister("B", &stubEngine{})

	_, err := Run(t.Context(), reg, gridConfig(t.TempDir()), WithImageSource(src))
	require.NoError(t, err)

	// One image per engine and dimension, never a cache of every dimension.
	require.Len(t, seen, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, seen[i].Bounds(), seen[i+3].Bounds())
		assert.Equal(t, seen[i].Pix, seen[i+3].Pix)
		assert.NotSame(t, seen[i], seen[i+3])
	}
}

func TestRun_Publishes(t *testing.T) {
	store := blobstore.NewMemoryStore()
	pub := publish.New(store, publish.WithRunID("r1"))

	dir := t.TempDir()
	reg := engine.NewRegistry()
	reg.MustRegister("Stub", &stubEngine{})
	reg.MustRegister("Broken", &stubEngine{failAt: 1})

	report, err := Run(t.Context(), reg, gridConfig(dir), WithPublisher(pub))
	require.NoError(t, err)
	assert.Equal(t, "r1", report.RunID)

	require.NotNil(t, report.Engines[0].Publish)
	assert.Equal(t, 18, report.Engines[0].Publish.Rows)
	assert.Nil(t, report.Engines[1].Publish)

	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Stub.csv", "report-r1.json"}, names)

	data, err := blobstore.ReadAll(t.Context(), store, "Stub.csv")
	require.NoError(t, err)
	rows, err := ReadRows(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Len(t, rows, 18)
}

func TestReadRows_TruncatedTail(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("dim,clusters,time\n4,2,0.5\n4,2,0.25\n4,3"))
	require.NoError(t, err)
	assert.Equal(t, []Row{{4, 2, 0.5}, {4, 2, 0.25}}, rows)

	_, err = ReadRows(strings.NewReader("a,b,c\n"))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	cells := Summarize([]Row{
		{4, 2, 1}, {4, 2, 3},
		{4, 3, 2},
	})
	require.Len(t, cells, 2)
	assert.Equal(t, CellSummary{Dim: 4, Clusters: 2, Samples: 2, Mean: 2, StdDev: 1.4142135623730951, Min: 1, Max: 3}, cells[0])
	assert.Equal(t, CellSummary{Dim: 4, Clusters: 3, Samples: 1, Mean: 2, Min: 2, Max: 2}, cells[1])
}
