package bench

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Header is the first line of every result file.
var Header = []string{"dim", "clusters", "time"}

// Row is one timed run.
type Row struct {
	Dim      int     `json:"dim"`
	Clusters int     `json:"clusters"`
	Time     float64 `json:"time"`
}

func (r Row) record() []string {
	return []string{
		strconv.Itoa(r.Dim),
		strconv.Itoa(r.Clusters),
		strconv.FormatFloat(r.Time, 'f', -1, 64),
	}
}

// rowWriter appends rows to a result file and flushes after each one, so an
// aborted sweep leaves every completed row on disk.
type rowWriter struct {
	f *os.File
	w *csv.Writer
}

func createRowWriter(path string) (*rowWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	rw := &rowWriter{f: f, w: csv.NewWriter(f)}
	if err := rw.write(Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return rw, nil
}

func (rw *rowWriter) write(record []string) error {
	if err := rw.w.Write(record); err != nil {
		return err
	}
	rw.w.Flush()
	return rw.w.Error()
}

func (rw *rowWriter) Append(r Row) error {
	return rw.write(r.record())
}

func (rw *rowWriter) Close() error {
	rw.w.Flush()
	return errors.Join(rw.w.Error(), rw.f.Close())
}

// ReadRows parses a result file. A malformed trailing line, as left by a
// process killed mid-write, ends parsing without an error; rows before it are
// returned.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	var rows []Row
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			if line == 0 {
				return nil, fmt.Errorf("read header: %w", err)
			}
			return rows, nil
		}
		if line == 0 {
			if rec[0] != Header[0] {
				return nil, fmt.Errorf("unexpected header %q", rec)
			}
			continue
		}
		row, ok := parseRow(rec)
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func parseRow(rec []string) (Row, bool) {
	dim, err1 := strconv.Atoi(rec[0])
	k, err2 := strconv.Atoi(rec[1])
	t, err3 := strconv.ParseFloat(rec[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Row{}, false
	}
	return Row{Dim: dim, Clusters: k, Time: t}, true
}

// ReadFile parses the result file at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRows(f)
}
