package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns and the rows beneath them.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// New returns an empty table with the given header.
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Columns) }

// Append adds a row, padding with nulls or dropping extra cells so the
// row matches the header width.
func (t *Table) Append(row []Value) {
	out := make([]Value, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// ColumnIndex returns the position of the column with exactly this name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// FindColumn returns the position of the first column whose trimmed name
// equals name ignoring case, or -1.
func (t *Table) FindColumn(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i
		}
	}
	return -1
}

// Column returns a copy of the cells in column i.
func (t *Table) Column(i int) []Value {
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := New(t.Columns)
	c.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = append([]Value(nil), row...)
	}
	return c
}

// Head returns a copy of the first n rows (all rows when n exceeds Len).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	c := New(t.Columns)
	c.Rows = make([][]Value, n)
	for i := 0; i < n; i++ {
		c.Rows[i] = append([]Value(nil), t.Rows[i]...)
	}
	return c
}

// Concat returns a new table holding t's rows followed by other's rows.
// Columns of other are aligned to t by name; a column missing from other
// is filled with nulls and an extra column in other is an error.
func (t *Table) Concat(other *Table) (*Table, error) {
	pos := make([]int, len(t.Columns))
	for i, name := range t.Columns {
		pos[i] = other.ColumnIndex(name)
	}
	for _, name := range other.Columns {
		if t.ColumnIndex(name) < 0 {
			return nil, fmt.Errorf("concat: unexpected column %q", name)
		}
	}

	out := t.Clone()
	for _, src := range other.Rows {
		row := make([]Value, len(t.Columns))
		for i, p := range pos {
			if p >= 0 {
				row[i] = src[p]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// DropEmptyRows returns a copy without the rows whose cells are all null.
func (t *Table) DropEmptyRows() *Table {
	c := New(t.Columns)
	for _, row := range t.Rows {
		for _, v := range row {
			if !v.IsNull() {
				c.Rows = append(c.Rows, append([]Value(nil), row...))
				break
			}
		}
	}
	return c
}

// DropDuplicates removes rows identical in every cell to an earlier row,
// keeping the first occurrence, and returns how many rows were removed.
func (t *Table) DropDuplicates() int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteByte(byte('0' + v.kind))
		b.WriteString(v.String())
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Renumber overwrites column col with start, start+1, ... in row order.
func (t *Table) Renumber(col int, start int64) {
	for i, row := range t.Rows {
		row[col] = Int(start + int64(i))
	}
}

// MaxNumeric returns the largest numeric value in column col, truncated to
// an integer. Non-numeric cells are ignored; ok is false when none are numeric.
func (t *Table) MaxNumeric(col int) (hi int64, ok bool) {
	for _, row := range t.Rows {
		f, isNum := row[col].Float()
		if !isNum {
			if s, isStr := row[col].Text(); isStr {
				if p := Parse(strings.TrimSpace(s)); p.IsNumeric() {
					f, isNum = p.Float()
				}
			}
		}
		if !isNum {
			continue
		}
		if !ok || int64(f) > hi {
			hi = int64(f)
			ok = true
		}
	}
	return hi, ok
}
