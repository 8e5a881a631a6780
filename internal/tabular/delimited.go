package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// readDelimited parses comma- or tab-separated text. The first record is
// the header; short records are padded with nulls.
func readDelimited(r io.Reader, comma rune) (*table.Table, error) {
	cr := csv.NewReader(wrapDelimited(r))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidCSV, err)
	}

	t := table.New(normalizeHeader(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		t.Append(parseRecord(rec))
	}
	return t, nil
}

func parseRecord(rec []string) []table.Value {
	row := make([]table.Value, len(rec))
	for i, s := range rec {
		row[i] = table.Parse(s)
	}
	return row
}

// normalizeHeader names blank columns "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2", ... so every column name is unique.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// writeDelimited writes a header line followed by one line per row.
func writeDelimited(w io.Writer, t *table.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, t.Width())
	for i, row := range t.Rows {
		for j, v := range row {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
