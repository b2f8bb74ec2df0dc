package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes headers on the first row and one row per record. The title is stored
// as the workbook title property.
func (e *XLSXExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(data.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
			return nil, fmt.Errorf("set doc props: %w", err)
		}
	}

	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	for r, row := range data.Rows {
		cells := make([]interface{}, len(data.Headers))
		for i := range data.Headers {
			cells[i] = data.cell(row, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", r+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSheet returns the first sheet of a workbook as a dataset. The first row is taken
// as headers; header names are lower-cased and trimmed.
func ReadSheet(r io.Reader) (Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Dataset{}, errors.New("workbook does not contain any sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Dataset{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Dataset{Name: sheet}, nil
	}

	data := Dataset{Name: sheet, Headers: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		data.Headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	data.Rows = rows[1:]
	return data, nil
}

// Column returns the index of the named header, or -1.
func (d Dataset) Column(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row under the named header.
func (d Dataset) Value(row []string, name string) string {
	i := d.Column(name)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(d.cell(row, i))
}

func sheetName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Sheet1"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
