package leavehandler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/export"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// balanceRows flattens the report to one row per employee and leave type.
func balanceRows(reports []leave.EmployeeBalanceReport) [][]any {
	rows := make([][]any, 0, len(reports))
	for _, report := range reports {
		for _, d := range report.LeaveDetails {
			rows = append(rows, []any{report.EmpID, report.EmployeeName, d.LeaveName, d.GrantDays, d.Consumed, d.RemainingBalance})
		}
	}
	return rows
}

func writeBalanceWorkbook(w http.ResponseWriter, r *http.Request, year int, reports []leave.EmployeeBalanceReport) {
	var buf bytes.Buffer
	err := export.WriteXLSX(&buf, export.Sheet{
		Name:    fmt.Sprintf("Balances %d", year),
		Headers: []string{"Emp ID", "Employee", "Leave", "Granted", "Consumed", "Remaining"},
		Rows:    balanceRows(reports),
	})
	if err != nil {
		slog.Error("balance workbook failed", "year", year, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export balances", middleware.GetRequestID(r.Context()))
		return
	}
	writeAttachment(w, xlsxContentType, fmt.Sprintf("leave-balances-%d.xlsx", year), buf.Bytes())
}

func lapseReport(preview leave.LapsePreview, generatedAt time.Time) export.Report {
	leaveNames := strings.Join(preview.LeaveNames, ", ")
	report := export.Report{
		Title: fmt.Sprintf("Year-end lapse summary %d", preview.Year),
		Lines: []string{
			"Leave types: " + leaveNames,
			"Entries to lapse: " + strconv.Itoa(len(preview.Entries)),
		},
		Headers: []string{"Ledger entry", "Emp ID", "Batch", "Granted leave"},
		Widths:  []float64{80, 35, 80, 82},
		Footer:  "Generated " + generatedAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if preview.NoMatches {
		report.Lines = append(report.Lines, "No unlapsed ledger entries match the selection.")
	}
	for _, entry := range preview.Entries {
		grants := make([]string, 0, len(entry.Policies))
		for _, p := range entry.Policies {
			grants = append(grants, fmt.Sprintf("%s %d", p.LeaveName, p.GrantDays))
		}
		report.Rows = append(report.Rows, []string{entry.ID, entry.EmpID, entry.BatchID, strings.Join(grants, ", ")})
	}
	return report
}

func writeLapseReport(w http.ResponseWriter, r *http.Request, preview leave.LapsePreview, now time.Time) {
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, lapseReport(preview, now)); err != nil {
		slog.Error("lapse report failed", "year", preview.Year, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to render lapse report", middleware.GetRequestID(r.Context()))
		return
	}
	writeAttachment(w, pdfContentType, fmt.Sprintf("lapse-summary-%d.pdf", preview.Year), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		slog.Warn("write attachment failed", "file", filename, "err", err)
	}
}
