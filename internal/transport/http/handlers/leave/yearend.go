package leavehandler

import (
	"context"
	"net/http"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/jobs"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

type batchRequest struct {
	RequestIDs []string `json:"requestIds" validate:"min=1,max=500"`
}

type lapseRequest struct {
	PolicyIDs []string `json:"policyIds" validate:"min=1,max=50"`
	Year      int      `json:"year" validate:"gte=2000,lte=2100"`
	Confirm   bool     `json:"confirm"`
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	scope, ok := shared.CompanyScope(r, user.CompanyIDs)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "company outside of your scope", middleware.GetRequestID(r.Context()))
		return
	}

	items, err := h.Service.PendingQueue(r.Context(), scope, h.now())
	if err != nil {
		writeServiceError(w, r, err, "pending_queue_failed", "failed to load pending leave requests")
		return
	}
	if items == nil {
		items = []leave.PendingItem{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, audit.ActionLeaveApprove, h.Service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, audit.ActionLeaveReject, h.Service.Reject)
}

type decideFunc func(ctx context.Context, actorEmpID string, companyScope, ids []string) (leave.BatchResult, error)

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, action string, decide decideFunc) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload batchRequest
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := decide(r.Context(), user.EmpID, user.CompanyIDs, shared.NormalizeIDs(payload.RequestIDs))
	if err != nil {
		writeServiceError(w, r, err, "leave_decision_failed", "failed to process leave requests")
		return
	}
	h.finishBatch(r, user.EmpID, action, "leave_request", result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRemind(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload batchRequest
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.SendReminders(r.Context(), user.CompanyIDs, shared.NormalizeIDs(payload.RequestIDs))
	if err != nil {
		writeServiceError(w, r, err, "leave_reminder_failed", "failed to send reminders")
		return
	}
	h.finishBatch(r, user.EmpID, audit.ActionLeaveRemind, "leave_request", result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalanceReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	scope, ok := shared.CompanyScope(r, user.CompanyIDs)
	if !ok {
		api.Fail(w, http.StatusForbidden, "forbidden", "company outside of your scope", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	query := r.URL.Query()
	year := validator.Year("year", query.Get("year"), h.now())
	format := query.Get("format")
	validator.Enum("format", format, []string{"json", "xlsx"}, "must be json or xlsx")
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	reports, err := h.Service.BalanceReport(r.Context(), scope, year, query.Get("leaveType"))
	if err != nil {
		writeServiceError(w, r, err, "balance_report_failed", "failed to build balance report")
		return
	}
	if format == "xlsx" {
		writeBalanceWorkbook(w, r, year, reports)
		return
	}
	if reports == nil {
		reports = []leave.EmployeeBalanceReport{}
	}
	api.Success(w, reports, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLapsePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload lapseRequest
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	preview, err := h.Service.FilterLapseCandidates(r.Context(), user.CompanyIDs, shared.NormalizeIDs(payload.PolicyIDs), payload.Year)
	if err != nil {
		writeServiceError(w, r, err, "lapse_preview_failed", "failed to preview lapse")
		return
	}
	api.Success(w, preview, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLapse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload lapseRequest
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}
	if !payload.Confirm {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "confirm", Reason: "must be true to lapse entries"}})
		return
	}

	result, err := h.Service.Run(r.Context(), leave.RunInput{
		CompanyScope: user.CompanyIDs,
		PolicyIDs:    shared.NormalizeIDs(payload.PolicyIDs),
		Year:         payload.Year,
		Confirm:      true,
		ActorID:      user.EmpID,
	})
	if err != nil {
		writeServiceError(w, r, err, "lapse_failed", "failed to lapse ledger entries")
		return
	}
	if result.Applied != nil {
		if h.Metrics != nil {
			h.Metrics.RecordOutcomes("lapse", map[string]int{string(leave.OutcomeSuccess): result.Applied.Lapsed})
		}
		h.record(r, user.EmpID, audit.ActionYearEndLapse, "leave_ledger", "", nil, map[string]any{
			"year":       result.Preview.Year,
			"leaveNames": result.Preview.LeaveNames,
			"lapsed":     result.Applied.Lapsed,
		})
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLapseReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	query := r.URL.Query()
	year := validator.Year("year", query.Get("year"), h.now())
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	preview, err := h.Service.FilterLapseCandidates(r.Context(), user.CompanyIDs, shared.NormalizeIDs(query["policyId"]), year)
	if err != nil {
		writeServiceError(w, r, err, "lapse_report_failed", "failed to build lapse report")
		return
	}
	writeLapseReport(w, r, preview, h.now())
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		api.Success(w, []jobs.Run{}, middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 20, 100)
	runs, err := h.Jobs.ListRuns(r.Context(), r.URL.Query().Get("jobType"), page.Limit)
	if err != nil {
		writeServiceError(w, r, err, "job_runs_failed", "failed to list job runs")
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}
