package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/newsloom/source-manager/internal/importer"
)

// buildWorkbook writes rows (including the header) into an in-memory xlsx.
func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellName, value))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseFileReadsRows(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{
		{"Identifier", "Name", "Enabled"},
		{"https://t.me/channel_news_test", "Example Channel", "true"},
		{"news.example.com", "Example News", "false"},
		{"@another_channel", "", ""},
	})

	rows, importErrors, err := importer.ParseFile(workbook)
	require.NoError(t, err)
	assert.Empty(t, importErrors)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "https://t.me/channel_news_test", rows[0].Identifier)
	assert.Equal(t, "Example Channel", rows[0].Name)
	assert.True(t, rows[0].Enabled)

	assert.False(t, rows[1].Enabled)

	// Empty enabled cell defaults to true.
	assert.Equal(t, "@another_channel", rows[2].Identifier)
	assert.True(t, rows[2].Enabled)
}

func TestParseFileReportsInvalidRows(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{
		{"Identifier", "Name", "Enabled"},
		{"", "Missing identifier", "true"},
		{"news.example.com", "Valid", "true"},
		{strings.Repeat("a", 3000), "Too long", "true"},
	})

	rows, importErrors, err := importer.ParseFile(workbook)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "news.example.com", rows[0].Identifier)

	require.Len(t, importErrors, 2)
	assert.Equal(t, 2, importErrors[0].Row)
	assert.Equal(t, "identifier is required", importErrors[0].Error)
	assert.Equal(t, 4, importErrors[1].Row)
	assert.Equal(t, "identifier is too long", importErrors[1].Error)
}

func TestParseFileSkipsBlankRows(t *testing.T) {
	workbook := buildWorkbook(t, [][]string{
		{"Identifier", "Name", "Enabled"},
		{"", "", ""},
		{"news.example.com", "Valid", "true"},
	})

	rows, importErrors, err := importer.ParseFile(workbook)
	require.NoError(t, err)
	assert.Empty(t, importErrors)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Row)
}

func TestParseFileRejectsGarbage(t *testing.T) {
	_, _, err := importer.ParseFile(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, importer.WriteTemplate(&buf))

	rows, importErrors, err := importer.ParseFile(&buf)
	require.NoError(t, err)
	assert.Empty(t, importErrors)

	// Template ships with one example row below the header.
	require.Len(t, rows, 1)
	assert.Equal(t, "https://t.me/channel_news_test", rows[0].Identifier)
	assert.True(t, rows[0].Enabled)
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name string
		row  importer.SourceRow
		want string
	}{
		{
			name: "valid",
			row:  importer.SourceRow{Identifier: "news.example.com"},
			want: "",
		},
		{
			name: "blank identifier",
			row:  importer.SourceRow{Identifier: "   "},
			want: "identifier is required",
		},
		{
			name: "oversized identifier",
			row:  importer.SourceRow{Identifier: strings.Repeat("x", 2049)},
			want: "identifier is too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.ValidateRow(tt.row))
		})
	}
}
