package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// Predict encodes the frame with the model's preprocessor and classifies
// every row. Cells are read as they are: the caller decides whether
// Cleanup has been applied.
func (m *Model) Predict(f *frame.Frame) ([]int, error) {
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, errors.New("model is incomplete")
	}
	x, err := m.Preprocessor.Transform(f)
	if err != nil {
		return nil, err
	}
	return m.Classifier.Predict(x)
}

// Encode writes m in gob form.
func Encode(w io.Writer, m *Model) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Decode reads a model written by Encode.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, errors.New("decode model: incomplete model")
	}
	return &m, nil
}

// Marshal returns the gob encoding of m.
func Marshal(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
