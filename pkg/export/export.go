package export

import (
	"fmt"
	"strings"
)

// Format names a rendering target.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a case-insensitive format name; empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Dataset is one exported collection. Each row holds one cell per header.
type Dataset struct {
	Name    string
	Headers []string
	Rows    [][]string
}

func (d Dataset) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}

// RendererFor returns the renderer for the format.
func RendererFor(f Format) Renderer {
	switch f {
	case FormatPDF:
		return NewPDFExporter()
	case FormatXLSX:
		return NewXLSXExporter()
	default:
		return NewCSVExporter()
	}
}
