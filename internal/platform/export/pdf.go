package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

type Report struct {
	Title   string
	Lines   []string
	Headers []string
	Widths  []float64
	Rows    [][]string
	Footer  string
}

// WritePDF renders a landscape A4 report with a summary block followed by a table.
func WritePDF(w io.Writer, report Report) error {
	if report.Title == "" {
		return errors.New("export: report title required")
	}
	if len(report.Widths) != 0 && len(report.Widths) != len(report.Headers) {
		return errors.New("export: column widths do not match headers")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		text := fmt.Sprintf("Page %d/{nb}", pdf.PageNo())
		if report.Footer != "" {
			text = report.Footer + "  |  " + text
		}
		pdf.CellFormat(0, 8, tr(text), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, tr(report.Title))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range report.Lines {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	if len(report.Lines) > 0 {
		pdf.Ln(4)
	}

	widths := report.Widths
	if len(widths) == 0 && len(report.Headers) > 0 {
		pageWidth, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		col := (pageWidth - left - right) / float64(len(report.Headers))
		widths = make([]float64, len(report.Headers))
		for i := range widths {
			widths[i] = col
		}
	}

	if len(report.Headers) > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(221, 235, 247)
		for i, h := range report.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range report.Rows {
		for i := range widths {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(w)
}
