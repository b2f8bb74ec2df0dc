package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Dataset {
	return Dataset{
		Name:    "Students",
		Headers: []string{"id", "name", "email"},
		Rows: [][]string{
			{"1", "Alice Johnson", "alice@example.com"},
			{"", "Ana, offline"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    Format
		wantErr bool
	}{
		{raw: "", want: FormatCSV},
		{raw: " PDF ", want: FormatPDF},
		{raw: "xlsx", want: FormatXLSX},
		{raw: "docx", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestCSVPadsShortRowsAndQuotes(t *testing.T) {
	out, err := NewCSVExporter().Render(sample(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, "id,name,email\n1,Alice Johnson,alice@example.com\n,\"Ana, offline\",\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	data := sample()
	data.Headers = []string{"ID", "Name", "Email"}
	out, err := RendererFor(FormatXLSX).Render(data, "Roster")
	require.NoError(t, err)

	back, err := ReadSheet(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Students", back.Name)
	assert.Equal(t, []string{"id", "name", "email"}, back.Headers)
	require.Len(t, back.Rows, 2)
	assert.Equal(t, "Alice Johnson", back.Value(back.Rows[0], "name"))
	assert.Equal(t, "", back.Value(back.Rows[1], "email"))
	assert.Equal(t, -1, back.Column("grade"))
}

func TestPDFRendersEmptyDataset(t *testing.T) {
	out, err := RendererFor(FormatPDF).Render(Dataset{Name: "Courses", Headers: []string{"id", "title"}}, "Console")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(" "))
	assert.Len(t, sheetName("an export name that is far too long for excel"), 31)
}
