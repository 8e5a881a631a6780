package tabular

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// MaxSpreadsheetBytes bounds how much of a spreadsheet upload is buffered.
// Workbooks have to be held in memory to be decoded.
const MaxSpreadsheetBytes = 64 << 20

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeOLE  = "application/x-ole-storage"
	mimeXML  = "text/xml"
	mimeZip  = "application/zip"
)

// Read decodes r according to f. Spreadsheets are sniffed by content, so a
// modern workbook saved with an .xls name still loads.
func Read(r io.Reader, f Format) (*table.Table, error) {
	switch f {
	case CSV, TSV:
		return readDelimited(r, f.Delimiter())
	case XLS, XLSX:
		data, err := io.ReadAll(io.LimitReader(r, MaxSpreadsheetBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read spreadsheet: %w", err)
		}
		if len(data) > MaxSpreadsheetBytes {
			return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidSpreadsheet, MaxSpreadsheetBytes)
		}
		return readSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInputFormat, f)
	}
}

func readSpreadsheet(data []byte) (*table.Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	mt := mimetype.Detect(data)
	switch {
	case isA(mt, mimeXLSX), isA(mt, mimeZip):
		return readXLSX(data)
	case isA(mt, mimeXLS), isA(mt, mimeOLE):
		return readBIFF(data)
	case isA(mt, mimeXML):
		return readSpreadsheetML(data)
	default:
		return nil, fmt.Errorf("%w: content is %s", ErrInvalidSpreadsheet, mt.String())
	}
}

// isA reports whether mt or one of its ancestors in the detection tree is want.
func isA(mt *mimetype.MIME, want string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// ReadFile opens path and decodes it using the format implied by its extension.
func ReadFile(path string) (*table.Table, error) {
	f, err := InputFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(bufio.NewReader(file), f)
}

// Write encodes t to w in format f.
func Write(w io.Writer, t *table.Table, f Format) error {
	switch f {
	case CSV, TSV:
		return writeDelimited(w, t, f.Delimiter())
	case XLSX:
		return writeXLSX(w, t)
	case XLS:
		return writeSpreadsheetML(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOutputFormat, f)
	}
}

// WriteFile writes t to path, replacing any existing file. The data is
// written to a temporary file in the same directory and renamed into place
// so readers never observe a partial file.
func WriteFile(path string, t *table.Table, f Format) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".synthetic-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := Write(bw, t, f); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
