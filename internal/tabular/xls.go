package tabular

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/extrame/xls"

	"github.com/JonMunkholm/datapoint/internal/table"
)

// readBIFF loads the first sheet of a binary (BIFF8) Excel workbook.
func readBIFF(data []byte) (t *table.Table, err error) {
	// extrame/xls panics on some malformed records.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	if book.NumSheets() == 0 {
		return nil, ErrEmptyFile
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		last := row.LastCol()
		cells := make([]string, last)
		for j := row.FirstCol(); j < last; j++ {
			cells[j] = row.Col(j)
		}
		grid = append(grid, trimTrailing(cells))
	}
	return fromGrid(grid)
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

// Legacy .xls output is written as an Excel 2003 XML workbook
// (SpreadsheetML). Excel and LibreOffice open it under the .xls extension
// and readSpreadsheetML reads it back.

const spreadsheetNS = "urn:schemas-microsoft-com:office:spreadsheet"

type xmlWorkbook struct {
	XMLName   xml.Name       `xml:"Workbook"`
	Xmlns     string         `xml:"xmlns,attr"`
	XmlnsSS   string         `xml:"xmlns:ss,attr"`
	Worksheet []xmlWorksheet `xml:"Worksheet"`
}

type xmlWorksheet struct {
	Name string   `xml:"ss:Name,attr"`
	Rows []xmlRow `xml:"Table>Row"`
}

type xmlRow struct {
	Cells []xmlCell `xml:"Cell"`
}

type xmlCell struct {
	Index int     `xml:"ss:Index,attr,omitempty"`
	Data  xmlData `xml:"Data"`
}

type xmlData struct {
	Type  string `xml:"ss:Type,attr"`
	Value string `xml:",chardata"`
}

// Decoding resolves the ss: prefix to a namespace, so the reader side
// matches on local names only.

type xmlWorkbookIn struct {
	Worksheet []struct {
		Rows []struct {
			Cells []struct {
				Index int `xml:"Index,attr"`
				Data  struct {
					Type  string `xml:"Type,attr"`
					Value string `xml:",chardata"`
				} `xml:"Data"`
			} `xml:"Cell"`
		} `xml:"Table>Row"`
	} `xml:"Worksheet"`
}

func writeSpreadsheetML(w io.Writer, t *table.Table) error {
	ws := xmlWorksheet{Name: sheetName, Rows: make([]xmlRow, 0, t.Len()+1)}

	header := xmlRow{Cells: make([]xmlCell, len(t.Columns))}
	for i, c := range t.Columns {
		header.Cells[i] = xmlCell{Data: xmlData{Type: "String", Value: c}}
	}
	ws.Rows = append(ws.Rows, header)

	for _, row := range t.Rows {
		xr := xmlRow{Cells: make([]xmlCell, 0, len(row))}
		skipped := false
		for i, v := range row {
			if v.IsNull() {
				skipped = true
				continue
			}
			cell := xmlCell{Data: xmlData{Type: cellType(v), Value: cellText(v)}}
			if skipped {
				cell.Index = i + 1
				skipped = false
			}
			xr.Cells = append(xr.Cells, cell)
		}
		ws.Rows = append(ws.Rows, xr)
	}

	doc := xmlWorkbook{Xmlns: spreadsheetNS, XmlnsSS: spreadsheetNS, Worksheet: []xmlWorksheet{ws}}

	if _, err := io.WriteString(w, xml.Header+`<?mso-application progid="Excel.Sheet"?>`+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("xls encode: %w", err)
	}
	return enc.Close()
}

func cellType(v table.Value) string {
	switch v.Kind() {
	case table.KindInt, table.KindFloat:
		return "Number"
	case table.KindBool:
		return "Boolean"
	default:
		return "String"
	}
}

func cellText(v table.Value) string {
	if b, ok := v.Bool(); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return v.String()
}

func readSpreadsheetML(data []byte) (*table.Table, error) {
	var doc xmlWorkbookIn
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	if len(doc.Worksheet) == 0 {
		return nil, ErrEmptyFile
	}

	rows := doc.Worksheet[0].Rows
	grid := make([][]string, 0, len(rows))
	for _, r := range rows {
		var cells []string
		for _, c := range r.Cells {
			if c.Index > 0 {
				for len(cells) < c.Index-1 {
					cells = append(cells, "")
				}
			}
			val := c.Data.Value
			if c.Data.Type == "Boolean" {
				if b, err := strconv.ParseBool(val); err == nil {
					val = strconv.FormatBool(b)
				}
			}
			cells = append(cells, val)
		}
		grid = append(grid, cells)
	}

	return fromGrid(grid)
}
