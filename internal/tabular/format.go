// Package tabular reads and writes tables in the file formats the service
// accepts: comma- and tab-separated text, legacy Excel (.xls) and Office
// Open XML spreadsheets (.xlsx).
package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a supported file format, named by its extension without the dot.
type Format string

const (
	CSV  Format = "csv"
	TSV  Format = "tsv"
	XLS  Format = "xls"
	XLSX Format = "xlsx"
)

var (
	// ErrUnsupportedInputFormat is returned for uploads whose extension is not
	// .csv, .tsv, .xls or .xlsx.
	ErrUnsupportedInputFormat = errors.New("unsupported file format")

	// ErrUnsupportedOutputFormat is returned for output types other than
	// csv, tsv, xls and xlsx.
	ErrUnsupportedOutputFormat = errors.New("unsupported output file type")

	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidCSV is returned when delimited text cannot be parsed.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrInvalidSpreadsheet is returned when a spreadsheet upload cannot be decoded.
	ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")
)

// Formats lists every supported format in display order.
var Formats = []Format{CSV, TSV, XLS, XLSX}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string { return "." + string(f) }

// Delimiter returns the field separator for delimited formats.
func (f Format) Delimiter() rune {
	if f == TSV {
		return '\t'
	}
	return ','
}

// IsSpreadsheet reports whether the format is an Excel workbook.
func (f Format) IsSpreadsheet() bool { return f == XLS || f == XLSX }

// InputFormat returns the format implied by a file name's extension.
func InputFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range Formats {
		if ext == f.Extension() {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (upload CSV, Excel (.xls/.xlsx), or TSV)", ErrUnsupportedInputFormat, ext)
}

// ParseOutputFormat validates a requested output type such as "csv" or "XLSX".
func ParseOutputFormat(s string) (Format, error) {
	want := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range Formats {
		if want == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, s)
}

// OutputName derives the output file name from the uploaded file name:
// "people.csv" written as xlsx becomes "people_cleaned_synthetic.xlsx".
func OutputName(inputName string, f Format) string {
	base := BaseName(inputName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_cleaned_synthetic" + f.Extension()
}

// BaseName strips any directory from an uploaded file name. Both / and \
// separate directories regardless of the server's OS.
func BaseName(name string) string {
	return name[strings.LastIndexAny(name, `/\`)+1:]
}
