package kmeansbench

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Environment variables read by LoggerFromEnv.
const (
	EnvLogLevel  = "KMEANSBENCH_LOG_LEVEL"
	EnvLogFormat = "KMEANSBENCH_LOG_FORMAT"
)

// Logger wraps slog.Logger with kmeansbench-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LoggerFromConfig builds a text or json logger. Unknown values fall back to
// info level and text output.
func LoggerFromConfig(level, format string) *Logger {
	lvl, _ := ParseLevel(level)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return NewJSONLogger(lvl)
	}
	return NewTextLogger(lvl)
}

// LoggerFromEnv builds a logger from KMEANSBENCH_LOG_LEVEL and
// KMEANSBENCH_LOG_FORMAT. Explicit values take precedence over the environment.
func LoggerFromEnv(level, format string) *Logger {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	if format == "" {
		format = os.Getenv(EnvLogFormat)
	}
	return LoggerFromConfig(level, format)
}

// WithEngine adds an engine name field to the logger.
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("engine", name),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dim", dim),
	}
}

// WithK adds a k (cluster count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogExec logs a single engine run.
func (l *Logger) LogExec(ctx context.Context, engine string, dim, k int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "exec failed",
			"engine", engine,
			"dim", dim,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "exec completed",
			"engine", engine,
			"dim", dim,
			"k", k,
			"seconds", d.Seconds(),
		)
	}
}

// LogSkip logs an engine skipped because its result file exists.
func (l *Logger) LogSkip(ctx context.Context, engine, path string) {
	l.InfoContext(ctx, "result file exists, skipping",
		"engine", engine,
		"file", path,
	)
}

// LogEngineDone logs the end of one engine's sweep.
func (l *Logger) LogEngineDone(ctx context.Context, engine string, rows int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sweep aborted",
			"engine", engine,
			"rows", rows,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sweep completed",
			"engine", engine,
			"rows", rows,
			"elapsed", elapsed.Round(time.Millisecond),
		)
	}
}

// LogPublish logs a result publication.
func (l *Logger) LogPublish(ctx context.Context, engine, key string, size int, err error) {
	if err != nil {
		l.WarnContext(ctx, "publish failed",
			"engine", engine,
			"key", key,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "published",
			"engine", engine,
			"key", key,
			"bytes", size,
		)
	}
}
