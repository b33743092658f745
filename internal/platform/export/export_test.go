package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		Sheet{
			Name:    "Balances",
			Headers: []string{"Emp ID", "Leave", "Remaining"},
			Rows: [][]any{
				{"E001", "Sick Leave", 4},
				{"E002", "Casual Leave", -2},
			},
		},
		Sheet{Name: "Summary", Rows: [][]any{{"Year", 2024}}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Balances", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Balances")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Emp ID", "Leave", "Remaining"}, rows[0])
	assert.Equal(t, []string{"E002", "Casual Leave", "-2"}, rows[2])

	value, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2024", value)
}

func TestWriteXLSXRequiresSheet(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, Report{
		Title:   "Year-end lapse 2024",
		Lines:   []string{"Leave types: Sick Leave", "Entries lapsed: 2"},
		Headers: []string{"Emp ID", "Entry", "Lapsed on"},
		Rows:    [][]string{{"E001", "a1", "2025-01-02"}, {"E002"}},
		Footer:  "HR administration",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFValidation(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePDF(&buf, Report{}))
	assert.Error(t, WritePDF(&buf, Report{Title: "x", Headers: []string{"a", "b"}, Widths: []float64{10}}))
}
