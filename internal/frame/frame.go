package frame

import (
	"fmt"
	"slices"
)

// #region frame
// Frame is an immutable-by-convention, column-major table with ordered
// column names. Methods that change shape return a new Frame and share the
// untouched column slices with the receiver.
type Frame struct {
	names []string
	cols  map[string][]Value
	rows  int
}

// New builds a frame from column names and equally long columns.
func New(names []string, cols [][]Value) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("frame: %d names for %d columns", len(names), len(cols))
	}
	f := &Frame{cols: make(map[string][]Value, len(names))}
	for i, name := range names {
		if _, dup := f.cols[name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", name)
		}
		if i > 0 && len(cols[i]) != f.rows {
			return nil, fmt.Errorf("frame: column %q has %d rows, want %d", name, len(cols[i]), f.rows)
		}
		f.rows = len(cols[i])
		f.names = append(f.names, name)
		f.cols[name] = cols[i]
	}
	return f, nil
}

// FromRows builds a frame from row-major data.
func FromRows(names []string, rows [][]Value) (*Frame, error) {
	cols := make([][]Value, len(names))
	for i := range cols {
		cols[i] = make([]Value, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("frame: row %d has %d cells, want %d", r, len(row), len(names))
		}
		for c, v := range row {
			cols[c][r] = v
		}
	}
	return New(names, cols)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string { return slices.Clone(f.names) }

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the named column. The slice must not be modified.
func (f *Frame) Column(name string) ([]Value, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Row returns the cells of row i in column order.
func (f *Frame) Row(i int) []Value {
	out := make([]Value, len(f.names))
	for c, name := range f.names {
		out[c] = f.cols[name][i]
	}
	return out
}

// #endregion frame

// #region reshape
// Drop returns a frame without the named column. Dropping an absent column
// returns the receiver unchanged.
func (f *Frame) Drop(name string) *Frame {
	if !f.Has(name) {
		return f
	}
	out := &Frame{cols: make(map[string][]Value, len(f.names)-1), rows: f.rows}
	for _, n := range f.names {
		if n == name {
			continue
		}
		out.names = append(out.names, n)
		out.cols[n] = f.cols[n]
	}
	return out
}

// With returns a frame where the named column is replaced by col. The
// column keeps its position; a new column is appended.
func (f *Frame) With(name string, col []Value) (*Frame, error) {
	if len(f.names) > 0 && len(col) != f.rows {
		return nil, fmt.Errorf("frame: column %q has %d rows, want %d", name, len(col), f.rows)
	}
	out := &Frame{names: slices.Clone(f.names), cols: make(map[string][]Value, len(f.names)+1), rows: len(col)}
	for _, n := range f.names {
		out.cols[n] = f.cols[n]
	}
	if !f.Has(name) {
		out.names = append(out.names, name)
	}
	out.cols[name] = col
	return out, nil
}

// Split separates the target column from the input columns.
func (f *Frame) Split(target string) (*Frame, []Value, error) {
	y, ok := f.cols[target]
	if !ok {
		return nil, nil, fmt.Errorf("frame: target column %q not found", target)
	}
	return f.Drop(target), y, nil
}

// Take returns a frame with the rows at the given indices, in that order.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{names: slices.Clone(f.names), cols: make(map[string][]Value, len(f.names)), rows: len(idx)}
	for _, n := range f.names {
		src := f.cols[n]
		dst := make([]Value, len(idx))
		for i, j := range idx {
			dst[i] = src[j]
		}
		out.cols[n] = dst
	}
	return out
}

// Equal reports whether two frames have the same columns, order and cells.
func (f *Frame) Equal(o *Frame) bool {
	if f.rows != o.rows || !slices.Equal(f.names, o.names) {
		return false
	}
	for _, n := range f.names {
		a, b := f.cols[n], o.cols[n]
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
	}
	return true
}

// #endregion reshape
