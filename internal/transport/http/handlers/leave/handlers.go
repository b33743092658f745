package leavehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/core"
	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/jobs"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

// LeaveService is the part of leave.Service the HTTP layer drives.
type LeaveService interface {
	ListPolicies(ctx context.Context) ([]leave.LeavePolicy, error)
	CreatePolicy(ctx context.Context, in leave.PolicyInput) (leave.LeavePolicy, error)
	UpdatePolicy(ctx context.Context, policyID string, in leave.PolicyInput) (leave.LeavePolicy, leave.LeavePolicy, error)
	Grant(ctx context.Context, in leave.GrantInput) (leave.BatchResult, error)
	Balances(ctx context.Context, empID string, year int) (leave.EmployeeBalanceSnapshot, error)
	Details(ctx context.Context, empID string, year int) ([]leave.BalanceDetail, error)

	PendingQueue(ctx context.Context, companyScope []string, now time.Time) ([]leave.PendingItem, error)
	Approve(ctx context.Context, actorEmpID string, companyScope, ids []string) (leave.BatchResult, error)
	Reject(ctx context.Context, actorEmpID string, companyScope, ids []string) (leave.BatchResult, error)
	SendReminders(ctx context.Context, companyScope, ids []string) (leave.BatchResult, error)
	BalanceReport(ctx context.Context, companyScope []string, year int, filter string) ([]leave.EmployeeBalanceReport, error)
	FilterLapseCandidates(ctx context.Context, companyScope, policyIDs []string, year int) (leave.LapsePreview, error)
	Run(ctx context.Context, in leave.RunInput) (leave.RunResult, error)
}

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, empID string) (core.Employee, error)
}

type RunLister interface {
	ListRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

type OutcomeRecorder interface {
	RecordOutcomes(operation string, counts map[string]int)
}

type Handler struct {
	Service   LeaveService
	Directory EmployeeLookup
	Perms     middleware.PermissionStore
	Audit     audit.Recorder
	Jobs      RunLister
	Metrics   OutcomeRecorder
	Now       func() time.Time
}

func NewHandler(service LeaveService, directory EmployeeLookup, perms middleware.PermissionStore, auditSvc audit.Recorder, jobsSvc RunLister, metrics OutcomeRecorder) *Handler {
	return &Handler{
		Service:   service,
		Directory: directory,
		Perms:     perms,
		Audit:     auditSvc,
		Jobs:      jobsSvc,
		Metrics:   metrics,
		Now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeavePolicyWrite, h.Perms)).Post("/policies", h.handleCreatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeavePolicyWrite, h.Perms)).Put("/policies/{policyID}", h.handleUpdatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveGrant, h.Perms)).Post("/grants", h.handleGrant)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances/{empID}", h.handleBalances)
	})
	r.Route("/year-end", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/pending", h.handlePending)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/remind", h.handleRemind)
		r.With(middleware.RequirePermission(auth.PermYearEndRead, h.Perms)).Get("/balances", h.handleBalanceReport)
		r.With(middleware.RequirePermission(auth.PermYearEndRead, h.Perms)).Post("/lapse/preview", h.handleLapsePreview)
		r.With(middleware.RequirePermission(auth.PermYearEndLapse, h.Perms)).Post("/lapse", h.handleLapse)
		r.With(middleware.RequirePermission(auth.PermYearEndRead, h.Perms)).Get("/lapse/report.pdf", h.handleLapseReport)
		r.With(middleware.RequirePermission(auth.PermYearEndRead, h.Perms)).Get("/runs", h.handleListRuns)
	})
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "leave_policies_failed", "failed to list leave policies")
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leave.PolicyInput
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	policy, err := h.Service.CreatePolicy(r.Context(), payload)
	if err != nil {
		writeServiceError(w, r, err, "leave_policy_create_failed", "failed to create leave policy")
		return
	}
	h.record(r, user.EmpID, audit.ActionLeavePolicyCreate, "leave_policy", policy.ID, nil, policy)
	api.Created(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leave.PolicyInput
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	policyID := chi.URLParam(r, "policyID")
	before, after, err := h.Service.UpdatePolicy(r.Context(), policyID, payload)
	if err != nil {
		writeServiceError(w, r, err, "leave_policy_update_failed", "failed to update leave policy")
		return
	}
	if before != after {
		h.record(r, user.EmpID, audit.ActionLeavePolicyUpdate, "leave_policy", policyID, before, after)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

type grantRequest struct {
	EmpIDs    []string `json:"empIds" validate:"min=1,max=1000"`
	PolicyIDs []string `json:"policyIds" validate:"min=1,max=50"`
	Year      int      `json:"year" validate:"omitempty,gte=2000,lte=2100"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload grantRequest
	if !shared.DecodeAndValidate(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}
	if payload.Year == 0 {
		payload.Year = h.now().Year()
	}

	result, err := h.Service.Grant(r.Context(), leave.GrantInput{
		EmpIDs:       shared.NormalizeIDs(payload.EmpIDs),
		PolicyIDs:    shared.NormalizeIDs(payload.PolicyIDs),
		Year:         payload.Year,
		CompanyScope: user.CompanyIDs,
		ActorID:      user.EmpID,
	})
	if err != nil {
		writeServiceError(w, r, err, "leave_grant_failed", "failed to grant leave")
		return
	}
	h.finishBatch(r, user.EmpID, audit.ActionLeaveGrant, "employee", result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

type balanceResponse struct {
	leave.EmployeeBalanceSnapshot
	Details []leave.BalanceDetail `json:"details"`
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	year := validator.Year("year", r.URL.Query().Get("year"), h.now())
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	empID := chi.URLParam(r, "empID")
	if h.Directory != nil {
		emp, err := h.Directory.GetEmployee(r.Context(), empID)
		if err != nil {
			writeServiceError(w, r, err, "leave_balances_failed", "failed to load leave balances")
			return
		}
		if !core.InScope(emp.CompanyIDs, user.CompanyIDs) {
			api.Fail(w, http.StatusNotFound, "not_found", leave.ErrEmployeeNotFound.Error(), middleware.GetRequestID(r.Context()))
			return
		}
	}

	snapshot, err := h.Service.Balances(r.Context(), empID, year)
	if err != nil {
		writeServiceError(w, r, err, "leave_balances_failed", "failed to load leave balances")
		return
	}
	if !snapshot.LedgerFound {
		api.FailWithDetails(w, http.StatusNotFound, "ledger_not_found", leave.ErrLedgerNotFound.Error(),
			map[string]any{"empId": empID, "year": year}, middleware.GetRequestID(r.Context()))
		return
	}
	details, err := h.Service.Details(r.Context(), empID, year)
	if err != nil {
		writeServiceError(w, r, err, "leave_balances_failed", "failed to load leave balances")
		return
	}
	api.Success(w, balanceResponse{EmployeeBalanceSnapshot: snapshot, Details: details}, middleware.GetRequestID(r.Context()))
}

// finishBatch feeds the outcome counts to metrics and audits every successful element.
func (h *Handler) finishBatch(r *http.Request, actorID, action, entityType string, result leave.BatchResult) {
	if h.Metrics != nil {
		h.Metrics.RecordOutcomes(result.Operation, result.Counts())
	}
	for _, outcome := range result.Outcomes {
		if outcome.Kind == leave.OutcomeSuccess {
			h.record(r, actorID, action, entityType, outcome.ID, nil, outcome)
		}
	}
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

// writeServiceError maps domain errors onto the API envelope. Anything unrecognised is a
// storage failure: it is logged and reported with the generic code.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())

	var verr *leave.ValidationError
	if errors.As(err, &verr) {
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, reqID, issues)
		return
	}
	var conflict *leave.LapseConflictError
	if errors.As(err, &conflict) {
		api.FailWithDetails(w, http.StatusConflict, "already_lapsed", leave.ErrAlreadyLapsed.Error(),
			map[string]any{"entryIds": conflict.EntryIDs}, reqID)
		return
	}

	switch {
	case errors.Is(err, leave.ErrEmployeeNotFound),
		errors.Is(err, leave.ErrPolicyNotFound),
		errors.Is(err, leave.ErrLedgerNotFound),
		errors.Is(err, leave.ErrRequestNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", rootMessage(err), reqID)
	case errors.Is(err, leave.ErrDuplicatePolicy):
		api.Fail(w, http.StatusConflict, "duplicate_policy", leave.ErrDuplicatePolicy.Error(), reqID)
	case errors.Is(err, leave.ErrPolicyLocked):
		api.Fail(w, http.StatusConflict, "policy_locked", leave.ErrPolicyLocked.Error(), reqID)
	default:
		slog.Error(strings.ReplaceAll(code, "_", " "), "path", r.URL.Path, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func rootMessage(err error) string {
	for _, sentinel := range []error{leave.ErrEmployeeNotFound, leave.ErrPolicyNotFound, leave.ErrLedgerNotFound, leave.ErrRequestNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
