package frame

import (
	"math"
	"strconv"
	"strings"
)

// #region kind
// Kind tags the content of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// #endregion kind

// #region value
// Value is a single cell: a number, a piece of text, or missing.
// The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text cell.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Missing returns a missing cell.
func Missing() Value {
	return Value{}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }

// Float returns the numeric content. ok is false for text and missing cells.
func (v Value) Float() (f float64, ok bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the cell the way it would be written to CSV.
// Missing renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text
}

// #endregion value

// #region parse
// ParseFloat parses a cell as a float. Numbers pass through, text is trimmed
// and parsed, missing cells and unparsable text return ok=false.
func ParseFloat(v Value) (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToNumeric coerces a cell to a number. Anything that cannot be parsed
// becomes missing; it never fails.
func ToNumeric(v Value) Value {
	f, ok := ParseFloat(v)
	if !ok {
		return Missing()
	}
	return Number(f)
}

// #endregion parse
