package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// SDType is the semantic type of a column.
type SDType string

const (
	SDTypeID          SDType = "id"
	SDTypePII         SDType = "pii"
	SDTypeBoolean     SDType = "boolean"
	SDTypeNumerical   SDType = "numerical"
	SDTypeDatetime    SDType = "datetime"
	SDTypeCategorical SDType = "categorical"
)

// ColumnMeta describes one column.
type ColumnMeta struct {
	Name    string `json:"name" yaml:"name"`
	Type    SDType `json:"sdtype" yaml:"sdtype"`
	Integer bool   `json:"integer,omitempty" yaml:"integer,omitempty"`
	// Layout is the time layout of a datetime column.
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// Metadata describes every column of a table, in column order.
type Metadata struct {
	Columns []ColumnMeta `json:"columns" yaml:"columns"`
}

// Column returns the metadata for the named column.
func (m Metadata) Column(name string) (ColumnMeta, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// piiKeywords mark a column as personally identifying when they appear
// anywhere in its lowercased name.
var piiKeywords = []string{
	"email", "name", "phone", "address", "ssn", "credit_card", "creditcard",
	"street", "city", "zip", "postcode",
}

// piiTokens must match a whole word of the column name; "ip" as a substring
// would catch "description" and "recipient".
var piiTokens = map[string]struct{}{
	"ip":   {},
	"ipv4": {},
	"ipv6": {},
}

// datetimeLayouts are tried in order; a column is a datetime when every
// non-null value parses with one layout.
var datetimeLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// DetectMetadata infers the semantic type of every column from its name and
// values.
func DetectMetadata(t *table.Table) Metadata {
	md := Metadata{Columns: make([]ColumnMeta, len(t.Columns))}
	for i, name := range t.Columns {
		md.Columns[i] = detectColumn(name, t.Column(i))
	}
	return md
}

func detectColumn(name string, values []table.Value) ColumnMeta {
	cm := ColumnMeta{Name: name}
	lower := strings.ToLower(strings.TrimSpace(name))

	if lower == "id" {
		cm.Type = SDTypeID
		return cm
	}
	if isPIIName(lower) {
		cm.Type = SDTypePII
		return cm
	}

	var nonNull, bools, nums, ints, strs int
	for _, v := range values {
		switch v.Kind() {
		case table.KindNull:
			continue
		case table.KindBool:
			bools++
		case table.KindInt:
			nums++
			ints++
		case table.KindFloat:
			nums++
			if f, _ := v.Float(); f == float64(int64(f)) {
				ints++
			}
		case table.KindString:
			strs++
		}
		nonNull++
	}

	switch {
	case nonNull == 0:
		cm.Type = SDTypeCategorical
	case bools == nonNull:
		cm.Type = SDTypeBoolean
	case nums == nonNull:
		cm.Type = SDTypeNumerical
		cm.Integer = ints == nonNull
	case strs == nonNull:
		if layout, ok := detectLayout(values); ok {
			cm.Type = SDTypeDatetime
			cm.Layout = layout
		} else {
			cm.Type = SDTypeCategorical
		}
	default:
		cm.Type = SDTypeCategorical
	}
	return cm
}

func isPIIName(lower string) bool {
	for _, kw := range piiKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := piiTokens[tok]; ok {
			return true
		}
	}
	return false
}

func detectLayout(values []table.Value) (string, bool) {
	for _, layout := range datetimeLayouts {
		if allParse(values, layout) {
			return layout, true
		}
	}
	return "", false
}

func allParse(values []table.Value, layout string) bool {
	for _, v := range values {
		s, ok := v.Text()
		if !ok {
			continue
		}
		if _, err := time.Parse(layout, strings.TrimSpace(s)); err != nil {
			return false
		}
	}
	return true
}
