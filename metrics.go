package kmeansbench

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting benchmark metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see package prommetrics).
type MetricsCollector interface {
	// RecordExec is called after each engine run.
	// err is nil if successful.
	RecordExec(engine string, dim, k int, duration time.Duration, err error)

	// RecordSkip is called when an engine is skipped because its result
	// file already exists.
	RecordSkip(engine string)

	// RecordFailure is called once when an engine's sweep is aborted.
	RecordFailure(engine string, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordExec(string, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSkip(string)                                 {}
func (NoopMetricsCollector) RecordFailure(string, error)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for tests and debugging without external dependencies.
type BasicMetricsCollector struct {
	ExecCount      atomic.Int64
	ExecErrors     atomic.Int64
	ExecTotalNanos atomic.Int64
	SkipCount      atomic.Int64
	FailureCount   atomic.Int64
}

// RecordExec implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExec(_ string, _, _ int, duration time.Duration, err error) {
	b.ExecCount.Add(1)
	b.ExecTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ExecErrors.Add(1)
	}
}

// RecordSkip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkip(string) {
	b.SkipCount.Add(1)
}

// RecordFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFailure(string, error) {
	b.FailureCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ExecCount:    b.ExecCount.Load(),
		ExecErrors:   b.ExecErrors.Load(),
		ExecAvgNanos: b.getAvgExecNanos(),
		SkipCount:    b.SkipCount.Load(),
		FailureCount: b.FailureCount.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgExecNanos() int64 {
	count := b.ExecCount.Load()
	if count == 0 {
		return 0
	}
	return b.ExecTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ExecCount    int64
	ExecErrors   int64
	ExecAvgNanos int64
	SkipCount    int64
	FailureCount int64
}
