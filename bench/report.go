package bench

import (
	"fmt"
	"time"

	"github.com/hupe1980/kmeansbench/publish"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Status is the outcome of one engine's sweep.
type Status int

const (
	StatusCompleted Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CellSummary aggregates the repetitions of one (dim, clusters) cell.
type CellSummary struct {
	Dim      int     `json:"dim"`
	Clusters int     `json:"clusters"`
	Samples  int     `json:"samples"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// EngineReport is the outcome of one engine's sweep.
type EngineReport struct {
	Name    string           `json:"name"`
	Path    string           `json:"path"`
	Status  Status           `json:"status"`
	Rows    int              `json:"rows"`
	Elapsed time.Duration    `json:"elapsed"`
	Err     error            `json:"-"`
	Error   string           `json:"error,omitempty"`
	Cells   []CellSummary    `json:"cells,omitempty"`
	Publish *publish.Receipt `json:"publish,omitempty"`
}

// Report is the outcome of a sweep over a registry.
type Report struct {
	RunID   string         `json:"run_id,omitempty"`
	Host    string         `json:"host"`
	Started time.Time      `json:"started"`
	Config  Config         `json:"config"`
	Engines []EngineReport `json:"engines"`
}

// Failed returns the reports of engines whose sweep was aborted.
func (r Report) Failed() []EngineReport {
	var out []EngineReport
	for _, e := range r.Engines {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out
}

// Summarize groups rows by (dim, clusters) in first-seen order.
func Summarize(rows []Row) []CellSummary {
	type cell struct{ dim, k int }

	var order []cell
	samples := make(map[cell][]float64)
	for _, r := range rows {
		c := cell{r.Dim, r.Clusters}
		if _, ok := samples[c]; !ok {
			order = append(order, c)
		}
		samples[c] = append(samples[c], r.Time)
	}

	out := make([]CellSummary, 0, len(order))
	for _, c := range order {
		xs := samples[c]
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		out = append(out, CellSummary{
			Dim:      c.dim,
			Clusters: c.k,
			Samples:  len(xs),
			Mean:     mean,
			StdDev:   std,
			Min:      floats.Min(xs),
			Max:      floats.Max(xs),
		})
	}
	return out
}
