package transform

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// SaveObject gob-encodes v to path, creating parent directories.
func SaveObject(path string, v any) error {
	return writeFile(path, func(w *bufio.Writer) error {
		return gob.NewEncoder(w).Encode(v)
	})
}

// LoadObject gob-decodes path into v, which must be a pointer.
func LoadObject(path string, v any) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	if err := gob.NewDecoder(bufio.NewReader(fh)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// SaveArray writes m in gonum's binary matrix format.
func SaveArray(path string, m *mat.Dense) error {
	return writeFile(path, func(w *bufio.Writer) error {
		_, err := m.MarshalBinaryTo(w)
		return err
	})
}

// LoadArray reads a matrix written by SaveArray.
func LoadArray(path string) (*mat.Dense, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(bufio.NewReader(fh)); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}

func writeFile(path string, encode func(*bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(fh)
	if err := encode(w); err != nil {
		fh.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return fh.Close()
}
