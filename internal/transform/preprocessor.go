package transform

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

// Preprocessor is the column-wise feature pipeline: scaled numeric columns
// followed by one-hot categorical blocks. Columns outside the schema's
// feature lists are dropped.
type Preprocessor struct {
	Scaler  StandardScaler
	Encoder OneHotEncoder
}

// NewPreprocessor returns an unfitted preprocessor for the schema's features.
func NewPreprocessor(s *schema.Schema) *Preprocessor {
	return &Preprocessor{
		Scaler:  StandardScaler{Columns: append([]string(nil), s.NumericalFeatures...)},
		Encoder: OneHotEncoder{Columns: append([]string(nil), s.CategoricalFeatures...)},
	}
}

// Fit learns scaling and categories from f.
func (p *Preprocessor) Fit(f *frame.Frame) error {
	if err := p.Scaler.Fit(f); err != nil {
		return &TransformationError{Step: "fit scaler", Err: err}
	}
	if err := p.Encoder.Fit(f); err != nil {
		return &TransformationError{Step: "fit one-hot encoder", Err: err}
	}
	return nil
}

// Width is the number of encoded feature columns.
func (p *Preprocessor) Width() int {
	return p.Scaler.Width() + p.Encoder.Width()
}

// FeatureNames names every encoded column in output order.
func (p *Preprocessor) FeatureNames() []string {
	out := append([]string(nil), p.Scaler.Columns...)
	return append(out, p.Encoder.FeatureNames()...)
}

// Transform encodes f with the fitted parameters. It never refits.
func (p *Preprocessor) Transform(f *frame.Frame) (*mat.Dense, error) {
	if f.Len() == 0 {
		return nil, &TransformationError{Step: "transform", Err: errors.New("no rows")}
	}
	if !p.fitted() {
		return nil, &TransformationError{Step: "transform", Err: errors.New("preprocessor is not fitted")}
	}
	nNum := p.Scaler.Width()
	out := mat.NewDense(f.Len(), p.Width(), nil)
	row := make([]float64, p.Width())
	for i := 0; i < f.Len(); i++ {
		clear(row)
		if err := p.Scaler.TransformInto(row[:nNum], f, i); err != nil {
			return nil, &TransformationError{Step: "scale numeric columns", Err: err}
		}
		if err := p.Encoder.TransformInto(row[nNum:], f, i); err != nil {
			return nil, &TransformationError{Step: "encode categorical columns", Err: err}
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func (p *Preprocessor) fitted() bool {
	return len(p.Scaler.Mean) == len(p.Scaler.Columns) &&
		len(p.Scaler.Scale) == len(p.Scaler.Columns) &&
		len(p.Encoder.Categories) == len(p.Encoder.Columns) &&
		p.Width() > 0
}

// FitTransform fits on f and encodes it.
func (p *Preprocessor) FitTransform(f *frame.Frame) (*mat.Dense, error) {
	if err := p.Fit(f); err != nil {
		return nil, err
	}
	return p.Transform(f)
}
