package schema

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// Record is one customer: the schema's feature columns mapped to raw cell
// values. Form parsing, RPC decoding and prediction-row construction all go
// through it, so the feature list lives in the schema alone.
type Record struct {
	names  []string
	values map[string]frame.Value
}

// NewRecord returns a record with every declared feature set to missing.
func (s *Schema) NewRecord() *Record {
	names := s.FeatureNames()
	r := &Record{names: names, values: make(map[string]frame.Value, len(names))}
	for _, n := range names {
		r.values[n] = frame.Missing()
	}
	return r
}

// Set assigns a feature value. Unknown names are rejected.
func (r *Record) Set(name string, v frame.Value) error {
	if _, ok := r.values[name]; !ok {
		return fmt.Errorf("record: unknown feature %q", name)
	}
	r.values[name] = v
	return nil
}

// Get returns a feature value.
func (r *Record) Get(name string) (frame.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the feature names in frame order.
func (r *Record) Names() []string {
	return append([]string(nil), r.names...)
}

// Frame converts the record into a single-row frame with one column per
// declared feature, in schema order.
func (r *Record) Frame() (*frame.Frame, error) {
	row := make([]frame.Value, len(r.names))
	for i, n := range r.names {
		row[i] = r.values[n]
	}
	return frame.FromRows(r.names, [][]frame.Value{row})
}

// Map renders the record as plain Go values: float64 for numbers, string for
// text, nil for missing.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.names))
	for _, n := range r.names {
		v := r.values[n]
		switch v.Kind() {
		case frame.KindNumber:
			f, _ := v.Float()
			out[n] = f
		case frame.KindText:
			out[n] = v.String()
		default:
			out[n] = nil
		}
	}
	return out
}

// #region constructors
// RecordFromForm reads every declared feature from submitted form values.
// Values are kept as text exactly as submitted; an empty value is missing.
// A feature absent from the form is an error.
func (s *Schema) RecordFromForm(form url.Values) (*Record, error) {
	r := s.NewRecord()
	var absent []string
	for _, n := range r.names {
		vals, ok := form[n]
		if !ok || len(vals) == 0 {
			absent = append(absent, n)
			continue
		}
		if vals[0] != "" {
			r.values[n] = frame.Text(vals[0])
		}
	}
	if len(absent) > 0 {
		return nil, fmt.Errorf("missing form fields: %s", strings.Join(absent, ", "))
	}
	return r, nil
}

// RecordFromMap builds a record from decoded JSON-like values. Unknown keys
// and absent features are errors.
func (s *Schema) RecordFromMap(m map[string]any) (*Record, error) {
	r := s.NewRecord()
	var unknown []string
	for k := range m {
		if _, ok := r.values[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))
	}

	for _, n := range r.names {
		raw, ok := m[n]
		if !ok {
			return nil, fmt.Errorf("missing field: %s", n)
		}
		switch v := raw.(type) {
		case nil:
		case float64:
			r.values[n] = frame.Number(v)
		case int:
			r.values[n] = frame.Number(float64(v))
		case int64:
			r.values[n] = frame.Number(float64(v))
		case string:
			if v != "" {
				r.values[n] = frame.Text(v)
			}
		case bool:
			r.values[n] = frame.Text(strconv.FormatBool(v))
		default:
			return nil, fmt.Errorf("field %s: unsupported type %T", n, raw)
		}
	}
	return r, nil
}

// #endregion constructors
