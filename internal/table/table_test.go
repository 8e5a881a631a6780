package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"", Null()},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.25", Float(3.25)},
		{"1e3", Float(1000)},
		{"TRUE", Bool(true)},
		{"false", Bool(false)},
		{"00123", String("00123")},
		{"0", Int(0)},
		{"nan", String("nan")},
		{" ", String(" ")},
		{"-", String("-")},
		{"alice@example.com", String("alice@example.com")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.True(t, got.Equal(tt.want), "Parse(%q) = %v (%s), want %v (%s)",
				tt.raw, got, got.Kind(), tt.want, tt.want.Kind())
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "12", Int(12).String())
	assert.Equal(t, "45123.45", Float(45123.45).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "x", String("x").String())
}

func sample() *Table {
	t := New([]string{"id", "name"})
	t.Append([]Value{Int(1), String("a")})
	t.Append([]Value{Int(2), String("b")})
	t.Append([]Value{Int(3), String("c")})
	return t
}

func names(t *Table) []string {
	var out []string
	for _, v := range t.Column(t.ColumnIndex("name")) {
		out = append(out, v.String())
	}
	return out
}

func TestAppendPadsShortRows(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	tbl.Append([]Value{Int(1)})
	require.Len(t, tbl.Rows[0], 3)
	assert.True(t, tbl.Rows[0][2].IsNull())
}

func TestHead(t *testing.T) {
	tbl := sample()
	assert.Equal(t, []string{"a", "b"}, names(tbl.Head(2)))
	assert.Equal(t, 3, tbl.Head(10).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())

	h := tbl.Head(1)
	h.Rows[0][1] = String("changed")
	assert.Equal(t, "a", tbl.Rows[0][1].String(), "Head must copy rows")
}

func TestConcatAlignsByName(t *testing.T) {
	tbl := sample()
	other := New([]string{"name", "id"})
	other.Append([]Value{String("d"), Int(9)})

	out, err := tbl.Concat(other)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "9", out.Rows[3][0].String())
	assert.Equal(t, "d", out.Rows[3][1].String())
	assert.Equal(t, 3, tbl.Len(), "Concat must not modify receiver")
}

func TestConcatRejectsUnknownColumn(t *testing.T) {
	other := New([]string{"zzz"})
	_, err := sample().Concat(other)
	assert.Error(t, err)
}

func TestDropDuplicates(t *testing.T) {
	tbl := New([]string{"x", "y"})
	tbl.Append([]Value{Int(1), String("a")})
	tbl.Append([]Value{Int(1), String("a")})
	tbl.Append([]Value{String("1"), String("a")})
	tbl.Append([]Value{Int(2), Null()})
	tbl.Append([]Value{Int(2), Null()})

	removed := tbl.DropDuplicates()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, tbl.Len(), "int 1 and string \"1\" are different cells")
}

func TestRenumberAndMax(t *testing.T) {
	tbl := New([]string{"id"})
	tbl.Append([]Value{Int(10)})
	tbl.Append([]Value{String("12")})
	tbl.Append([]Value{String("abc")})
	tbl.Append([]Value{Float(7.9)})

	hi, ok := tbl.MaxNumeric(0)
	require.True(t, ok)
	assert.Equal(t, int64(12), hi)

	tbl.Renumber(0, 1)
	var got []string
	for _, v := range tbl.Column(0) {
		got = append(got, v.String())
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, got); diff != "" {
		t.Errorf("Renumber mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxNumericNone(t *testing.T) {
	tbl := New([]string{"id"})
	tbl.Append([]Value{String("x")})
	_, ok := tbl.MaxNumeric(0)
	assert.False(t, ok)
}

func TestDropEmptyRowsAndFindColumn(t *testing.T) {
	tbl := New([]string{" ID ", "b"})
	tbl.Append([]Value{Null(), Null()})
	tbl.Append([]Value{Int(1), Null()})

	assert.Equal(t, 1, tbl.DropEmptyRows().Len())
	assert.Equal(t, 0, tbl.FindColumn("id"))
	assert.Equal(t, -1, tbl.ColumnIndex("id"))
}
