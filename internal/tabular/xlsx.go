package tabular

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// sheetName is the worksheet written to new workbooks.
const sheetName = "Sheet1"

// readXLSX loads the first worksheet of an Office Open XML workbook.
func readXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidSpreadsheet, sheets[0], err)
	}
	return fromGrid(rows)
}

// fromGrid turns spreadsheet rows of text into a table. Blank rows are
// skipped, as blank lines are in delimited files; the first non-blank row is
// the header.
func fromGrid(rows [][]string) (*table.Table, error) {
	start := 0
	for start < len(rows) && blankRecord(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrEmptyFile
	}

	t := table.New(normalizeHeader(rows[start]))
	for _, rec := range rows[start+1:] {
		if blankRecord(rec) {
			continue
		}
		t.Append(parseRecord(rec))
	}
	return t, nil
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// writeXLSX writes the table to a single-sheet workbook using excelize's
// stream writer, which keeps memory flat for large tables.
func writeXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx stream writer: %w", err)
	}

	header := make([]interface{}, t.Width())
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	cells := make([]interface{}, t.Width())
	for r, row := range t.Rows {
		for i, v := range row {
			cells[i] = v.Any()
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("xlsx row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
