package transform

import (
	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

// Cleanup applies the row-level fixes shared by training and evaluation, in
// order: coerce the schema's dtype-fix column to numeric, then drop the
// schema's identifier column. Columns absent from f are skipped. Applying
// Cleanup twice yields the same frame as applying it once.
func Cleanup(f *frame.Frame, s *schema.Schema) *frame.Frame {
	f = CoerceNumeric(f, s.ChangeColumnDtype)
	return f.Drop(s.DropColumns)
}

// CoerceNumeric converts the named column to numbers. Values that do not
// parse become missing.
func CoerceNumeric(f *frame.Frame, column string) *frame.Frame {
	col, ok := f.Column(column)
	if !ok {
		return f
	}
	out := make([]frame.Value, len(col))
	for i, v := range col {
		out[i] = frame.ToNumeric(v)
	}
	coerced, err := f.With(column, out)
	if err != nil {
		// same length as the source column, so With cannot fail
		panic(err)
	}
	return coerced
}
