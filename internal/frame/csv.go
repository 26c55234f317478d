package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ReadCSV reads a header row followed by data rows. A column whose every
// non-empty cell parses as a float becomes numeric; any other column keeps
// its cells as text. Empty cells are missing in both cases.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	names := append([]string(nil), header...)

	raw := make([][]string, len(names))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		for c := range names {
			raw[c] = append(raw[c], rec[c])
		}
	}

	cols := make([][]Value, len(names))
	for c := range names {
		cols[c] = inferColumn(raw[c])
	}
	return New(names, cols)
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	f, err := ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteCSV writes the header and every row.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.names); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(f.names))
	for i := 0; i < f.rows; i++ {
		for c, name := range f.names {
			rec[c] = f.cols[name][i].String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes f to path, creating parent directories.
func WriteCSVFile(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(fh, f); err != nil {
		fh.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return fh.Close()
}

func inferColumn(cells []string) []Value {
	numeric := true
	for _, s := range cells {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numeric = false
			break
		}
	}

	out := make([]Value, len(cells))
	for i, s := range cells {
		switch {
		case s == "":
			out[i] = Missing()
		case numeric:
			f, _ := strconv.ParseFloat(s, 64)
			out[i] = Number(f)
		default:
			out[i] = Text(s)
		}
	}
	return out
}
