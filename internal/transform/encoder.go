package transform

import (
	"fmt"
	"slices"
	"sort"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// #region one-hot
// OneHotEncoder expands each categorical column into one indicator per
// category seen while fitting. Categories are sorted. A category never seen
// while fitting encodes as an all-zero block instead of failing.
type OneHotEncoder struct {
	Columns    []string
	Categories [][]string
}

// Fit collects the sorted categories of every column.
func (e *OneHotEncoder) Fit(f *frame.Frame) error {
	e.Categories = make([][]string, len(e.Columns))
	for j, name := range e.Columns {
		col, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("categorical column %q not found", name)
		}
		seen := make(map[string]struct{})
		for _, v := range col {
			seen[v.String()] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	return nil
}

// Width is the number of output columns.
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, cats := range e.Categories {
		w += len(cats)
	}
	return w
}

// FeatureNames returns one "column_category" name per output column.
func (e *OneHotEncoder) FeatureNames() []string {
	out := make([]string, 0, e.Width())
	for j, name := range e.Columns {
		for _, c := range e.Categories[j] {
			out = append(out, name+"_"+c)
		}
	}
	return out
}

// TransformInto writes the indicator blocks for row i of f into dst, which
// must be zeroed.
func (e *OneHotEncoder) TransformInto(dst []float64, f *frame.Frame, i int) error {
	offset := 0
	for j, name := range e.Columns {
		col, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("categorical column %q not found", name)
		}
		cats := e.Categories[j]
		if k, found := slices.BinarySearch(cats, col[i].String()); found {
			dst[offset+k] = 1
		}
		offset += len(cats)
	}
	return nil
}

// #endregion one-hot

// #region label
// LabelEncoder maps target labels to consecutive integers in sorted label
// order.
type LabelEncoder struct {
	Column  string
	Classes []string
}

// Fit learns the sorted set of labels.
func (e *LabelEncoder) Fit(y []frame.Value) error {
	seen := make(map[string]struct{})
	for i, v := range y {
		if v.IsMissing() {
			return fmt.Errorf("missing label at row %d", i)
		}
		seen[v.String()] = struct{}{}
	}
	if len(seen) == 0 {
		return fmt.Errorf("no labels to fit")
	}
	e.Classes = make([]string, 0, len(seen))
	for c := range seen {
		e.Classes = append(e.Classes, c)
	}
	sort.Strings(e.Classes)
	return nil
}

// Transform encodes labels. A label absent from the fitted classes fails
// with *UnseenLabelError.
func (e *LabelEncoder) Transform(y []frame.Value) ([]float64, error) {
	out := make([]float64, len(y))
	for i, v := range y {
		k, found := slices.BinarySearch(e.Classes, v.String())
		if !found {
			return nil, &UnseenLabelError{Column: e.Column, Value: v.String()}
		}
		out[i] = float64(k)
	}
	return out, nil
}

// Inverse returns the label for an encoded class index.
func (e *LabelEncoder) Inverse(class int) (string, error) {
	if class < 0 || class >= len(e.Classes) {
		return "", fmt.Errorf("class %d out of range [0,%d)", class, len(e.Classes))
	}
	return e.Classes[class], nil
}

// #endregion label
