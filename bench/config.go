package bench

import (
	"fmt"
	"math"

	"github.com/hupe1980/kmeansbench"
)

const (
	// MaxAxisPoints bounds the number of values on one sweep axis.
	MaxAxisPoints = 1 << 16
	// MaxRowsPerEngine bounds the rows one engine's sweep may write.
	MaxRowsPerEngine = 1 << 24
	// MaxDimension bounds the image edge length; a MaxDimension² RGBA
	// input takes 1 GiB.
	MaxDimension = 1 << 14
)

// Range is an inclusive integer sweep axis. Min > Max yields no values.
type Range struct {
	Min  int
	Max  int
	Step int
}

// Len returns the number of values on the axis.
func (r Range) Len() int {
	if r.Step <= 0 || r.Min > r.Max {
		return 0
	}
	// The unsigned difference is exact even when Max-Min overflows int.
	q := uint(r.Max-r.Min) / uint(r.Step)
	if q >= math.MaxInt {
		return math.MaxInt
	}
	return int(q) + 1
}

// Values returns Min, Min+Step, ... up to and including Max.
func (r Range) Values() []int {
	n := r.Len()
	if n == 0 {
		return nil
	}
	out := make([]int, 0, min(n, MaxAxisPoints))
	for v := r.Min; ; v += r.Step {
		out = append(out, v)
		if uint(r.Max-v) < uint(r.Step) {
			break
		}
	}
	return out
}

func (r Range) validate(axis string) error {
	switch {
	case r.Step <= 0:
		return &kmeansbench.SweepError{Axis: axis, Reason: "step must be positive"}
	case r.Min < 1:
		return &kmeansbench.SweepError{Axis: axis, Reason: "minimum must be at least 1"}
	case r.Len() > MaxAxisPoints:
		return &kmeansbench.SweepError{Axis: axis, Reason: fmt.Sprintf("more than %d values", MaxAxisPoints)}
	}
	return nil
}

// Config describes one sweep.
type Config struct {
	// Dims is the image edge length axis; images are Dim×Dim.
	Dims Range
	// Clusters is the k axis.
	Clusters Range
	// Repetitions is the number of extra runs per cell; each cell is
	// measured Repetitions+1 times.
	Repetitions int
	// OutputDir receives one <Engine>.csv per engine. Created if missing.
	OutputDir string
	// Seed derives the per-dimension input images.
	Seed int64
}

// Validate reports the first invalid setting as a *kmeansbench.SweepError.
func (c Config) Validate() error {
	if err := c.Dims.validate("dim"); err != nil {
		return err
	}
	if c.Dims.Len() > 0 && c.Dims.Max > MaxDimension {
		return &kmeansbench.SweepError{Axis: "dim", Reason: fmt.Sprintf("maximum must not exceed %d", MaxDimension)}
	}
	if err := c.Clusters.validate("clusters"); err != nil {
		return err
	}
	if c.Repetitions < 0 {
		return &kmeansbench.SweepError{Axis: "repetitions", Reason: "must not be negative"}
	}
	cells := int64(c.Dims.Len()) * int64(c.Clusters.Len())
	if c.Repetitions >= MaxRowsPerEngine || cells*int64(c.Repetitions+1) > MaxRowsPerEngine {
		return &kmeansbench.SweepError{Axis: "repetitions", Reason: fmt.Sprintf("sweep exceeds %d rows per engine", MaxRowsPerEngine)}
	}
	if c.OutputDir == "" {
		return &kmeansbench.SweepError{Axis: "outputDir", Reason: "must not be empty"}
	}
	return nil
}

// RowsPerEngine returns the number of rows a completed sweep writes.
func (c Config) RowsPerEngine() int {
	return c.Dims.Len() * c.Clusters.Len() * (c.Repetitions + 1)
}
