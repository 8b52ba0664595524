package kmeansbench

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed caller input, including
	// integer arguments with trailing characters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidClusterCount is returned when k is outside [1, pixel count].
	ErrInvalidClusterCount = errors.New("invalid cluster count")

	// ErrNoResultAvailable is returned when a result or timing is requested
	// before any successful run.
	ErrNoResultAvailable = errors.New("no result available")

	// ErrInputLoadFailure is returned when an input image cannot be read or decoded.
	ErrInputLoadFailure = errors.New("input load failure")

	// ErrInvalidSweepParameters is returned for a sweep that cannot advance.
	ErrInvalidSweepParameters = errors.New("invalid sweep parameters")

	// ErrEngineExecutionFailure is returned when a backend computation fails.
	ErrEngineExecutionFailure = errors.New("engine execution failure")
)

// InvalidClusterCountError reports a k outside the valid range for an image.
type InvalidClusterCountError struct {
	K      int
	Pixels int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("invalid cluster count: k=%d, pixels=%d (want 1 <= k <= pixels)", e.K, e.Pixels)
}

// Is reports whether target is ErrInvalidClusterCount.
func (e *InvalidClusterCountError) Is(target error) bool { return target == ErrInvalidClusterCount }

// ArgumentError reports a malformed argument.
//
// The original parse error (if any) can be accessed via errors.Unwrap.
type ArgumentError struct {
	Name   string
	Value  string
	Reason string
	cause  error
}

// NewArgumentError creates an ArgumentError wrapping cause.
func NewArgumentError(name, value, reason string, cause error) *ArgumentError {
	return &ArgumentError{Name: name, Value: value, Reason: reason, cause: cause}
}

func (e *ArgumentError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s %q", e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s %q", e.Name, e.Reason, e.Value)
}

func (e *ArgumentError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidArgument.
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// SweepError reports an invalid sweep axis or setting.
type SweepError struct {
	Axis   string
	Reason string
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("invalid sweep parameters: %s: %s", e.Axis, e.Reason)
}

// Is reports whether target is ErrInvalidSweepParameters.
func (e *SweepError) Is(target error) bool { return target == ErrInvalidSweepParameters }

// EngineError reports a failed engine run.
//
// The original underlying error can be accessed via errors.Unwrap.
type EngineError struct {
	Engine   string
	Dim      int
	Clusters int
	cause    error
}

// NewEngineError creates an EngineError wrapping cause.
func NewEngineError(engine string, dim, clusters int, cause error) *EngineError {
	return &EngineError{Engine: engine, Dim: dim, Clusters: clusters, cause: cause}
}

func (e *EngineError) Error() string {
	if e.Dim == 0 {
		return fmt.Sprintf("engine %s failed: %v", e.Engine, e.cause)
	}
	return fmt.Sprintf("engine %s failed at dim=%d clusters=%d: %v", e.Engine, e.Dim, e.Clusters, e.cause)
}

func (e *EngineError) Unwrap() error { return e.cause }

// Is reports whether target is ErrEngineExecutionFailure.
func (e *EngineError) Is(target error) bool { return target == ErrEngineExecutionFailure }

// LoadError reports an input image that could not be loaded.
type LoadError struct {
	Path  string
	cause error
}

// NewLoadError creates a LoadError wrapping cause.
func NewLoadError(path string, cause error) *LoadError {
	return &LoadError{Path: path, cause: cause}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load image file '%s': %v", e.Path, e.cause)
}

func (e *LoadError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInputLoadFailure.
func (e *LoadError) Is(target error) bool { return target == ErrInputLoadFailure }
