// Package table provides the in-memory representation of a tabular dataset:
// named columns and rows of typed cells.
//
// Cells are small tagged values rather than interface{} so that readers,
// models and writers agree on exactly five kinds: null, string, int, float
// and bool. Inference from raw text follows the rules in [Parse].
package table

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// Null returns the null cell.
func Null() Value { return Value{} }

// String returns a string cell.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point cell.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Parse infers a cell from raw text:
//
//   - "" is null
//   - an integer literal is an int, unless it has a leading zero ("00123"
//     stays a string so postal codes and account numbers survive)
//   - a decimal or scientific literal is a float
//   - true/false in any case is a bool
//   - everything else is kept verbatim as a string
//
// Sentinels such as "nan" or "-" are not turned into nulls here; deciding
// what needs replacement belongs to the reconciler.
func Parse(raw string) Value {
	if raw == "" {
		return Null()
	}

	s := strings.TrimSpace(raw)
	if numericRegex.MatchString(s) {
		digits := strings.TrimLeft(s, "+-")
		if len(digits) > 1 && digits[0] == '0' && isAllDigits(digits) {
			return String(raw)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}

	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}

	return String(raw)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Kind reports the dynamic type of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the string payload when the cell is a string.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Int returns the integer payload when the cell is an int.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the numeric payload of int and float cells.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Bool returns the boolean payload when the cell is a bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// IsNumeric reports whether the cell holds an int or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String renders the cell the way it is written to delimited output.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Any returns the cell as a plain Go value: nil, string, int64, float64 or bool.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two cells have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}
