package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchema []byte

// #region load
// Load reads and validates a schema file.
func Load(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schema document and validates it.
func Parse(buf []byte) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	s := &Schema{
		NumericalFeatures:   doc.NumericalFeatures,
		CategoricalFeatures: doc.CategoricalFeatures,
		ChangeColumnDtype:   doc.ChangeColumnDtype,
		DropColumns:         doc.DropColumns,
		TargetColumn:        doc.TargetColumn,
	}
	if s.TargetColumn == "" {
		s.TargetColumn = DefaultTarget
	}
	for i, entry := range doc.Columns {
		if len(entry) != 1 {
			return nil, fmt.Errorf("parse schema: columns[%d] must have exactly one name", i)
		}
		for name, dtype := range entry {
			s.Columns = append(s.Columns, Column{Name: name, Dtype: dtype})
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Default returns the built-in Telco customer schema.
func Default() *Schema {
	s, err := Parse(defaultSchema)
	if err != nil {
		panic(fmt.Sprintf("built-in schema is invalid: %v", err))
	}
	return s
}

// #endregion load

// #region validate
// Validate checks the schema is usable for encoding.
func (s *Schema) Validate() error {
	if len(s.NumericalFeatures)+len(s.CategoricalFeatures) == 0 {
		return errors.New("schema declares no features")
	}
	seen := make(map[string]string)
	for _, group := range []struct {
		role  string
		names []string
	}{
		{"numerical", s.NumericalFeatures},
		{"categorical", s.CategoricalFeatures},
	} {
		for _, name := range group.names {
			if name == "" {
				return fmt.Errorf("schema: empty %s feature name", group.role)
			}
			if prev, dup := seen[name]; dup {
				return fmt.Errorf("schema: feature %q declared as %s and %s", name, prev, group.role)
			}
			seen[name] = group.role
		}
	}
	if _, clash := seen[s.TargetColumn]; clash {
		return fmt.Errorf("schema: target %q is also a feature", s.TargetColumn)
	}
	return nil
}

// #endregion validate

// #region accessors
// FeatureNames returns the declared feature columns in the order every
// encoded row uses: numerical features first, then categorical ones.
func (s *Schema) FeatureNames() []string {
	out := make([]string, 0, len(s.NumericalFeatures)+len(s.CategoricalFeatures))
	out = append(out, s.NumericalFeatures...)
	return append(out, s.CategoricalFeatures...)
}

// ColumnNames returns the names from the columns list in order.
func (s *Schema) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// IsNumerical reports whether name is a numerical feature.
func (s *Schema) IsNumerical(name string) bool {
	return slices.Contains(s.NumericalFeatures, name)
}

// #endregion accessors
