package transform

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// StandardScaler standardizes numeric columns to zero mean and unit
// variance using the population standard deviation. A column with zero
// spread keeps a scale of 1. Missing cells are ignored while fitting and
// map to the fitted mean (0 after scaling) when transforming.
type StandardScaler struct {
	Columns []string
	Mean    []float64
	Scale   []float64
}

// Fit learns per-column mean and scale from f.
func (s *StandardScaler) Fit(f *frame.Frame) error {
	s.Mean = make([]float64, len(s.Columns))
	s.Scale = make([]float64, len(s.Columns))
	for j, name := range s.Columns {
		col, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("numeric column %q not found", name)
		}
		xs := make([]float64, 0, len(col))
		for i, v := range col {
			x, ok, err := numericCell(v)
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			if ok {
				xs = append(xs, x)
			}
		}
		s.Scale[j] = 1
		if len(xs) == 0 {
			continue
		}
		mean, std := stat.PopMeanStdDev(xs, nil)
		s.Mean[j] = mean
		if std > 0 {
			s.Scale[j] = std
		}
	}
	return nil
}

// Width is the number of output columns.
func (s *StandardScaler) Width() int { return len(s.Columns) }

// TransformInto writes scaled values for row i of f into dst.
func (s *StandardScaler) TransformInto(dst []float64, f *frame.Frame, i int) error {
	for j, name := range s.Columns {
		col, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("numeric column %q not found", name)
		}
		x, ok, err := numericCell(col[i])
		if err != nil {
			return fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		if !ok {
			dst[j] = 0
			continue
		}
		dst[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return nil
}

// numericCell reads a cell as a number. Missing cells report ok=false.
// Text is parsed; text that is not a number is an error.
func numericCell(v frame.Value) (float64, bool, error) {
	if v.IsMissing() {
		return 0, false, nil
	}
	x, ok := frame.ParseFloat(v)
	if !ok {
		return 0, false, fmt.Errorf("could not convert %q to float", v.String())
	}
	return x, true, nil
}
