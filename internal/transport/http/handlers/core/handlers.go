package corehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/core"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

type Directory interface {
	ListEmployees(ctx context.Context, scope []string) ([]core.Employee, error)
	GetEmployee(ctx context.Context, empID string) (core.Employee, error)
	UpsertEmployee(ctx context.Context, emp core.Employee) error
}

type Handler struct {
	Store Directory
	Perms middleware.PermissionStore
}

func NewHandler(store Directory, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.Route("/{empID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handlePutEmployee)
		})
	})
}

// visible reports whether user may see emp: HR sees its companies, managers their reports.
func visible(user auth.UserContext, emp core.Employee) bool {
	if !core.InScope(emp.CompanyIDs, user.CompanyIDs) {
		return false
	}
	if user.RoleName == auth.RoleManager {
		return emp.EmpID == user.EmpID || emp.ManagerID == user.EmpID
	}
	return true
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
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

	employees, err := h.Store.ListEmployees(r.Context(), scope)
	if err != nil {
		slog.Error("employee list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	filtered := make([]core.Employee, 0, len(employees))
	for _, emp := range employees {
		if visible(user, emp) {
			filtered = append(filtered, emp)
		}
	}
	api.Success(w, filtered, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "empID"))
	if err != nil && !errors.Is(err, core.ErrEmployeeNotFound) {
		slog.Error("employee lookup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_lookup_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil || !visible(user, emp) {
		api.Fail(w, http.StatusNotFound, "not_found", core.ErrEmployeeNotFound.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

type employeeRequest struct {
	FirstName   string   `json:"firstName" validate:"notblank,max=100"`
	LastName    string   `json:"lastName" validate:"max=100"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Gender      string   `json:"gender" validate:"max=32"`
	JobLocation string   `json:"jobLocation" validate:"max=100"`
	Department  string   `json:"department" validate:"max=100"`
	ManagerID   string   `json:"managerId"`
	HireDate    string   `json:"hireDate"`
	Status      string   `json:"status"`
	CompanyIDs  []string `json:"companyIds"`
}

var employeeStatuses = []string{core.StatusActive, core.StatusOnProbation, core.StatusResigned, core.StatusTerminated}

func (h *Handler) handlePutEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload employeeRequest
	if !shared.DecodeJSON(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	v := shared.NewValidator()
	v.Struct(&payload)
	if payload.Status == "" {
		payload.Status = core.StatusActive
	}
	v.Enum("status", payload.Status, employeeStatuses, "must be one of "+strings.Join(employeeStatuses, ", "))
	companies := shared.NormalizeIDs(payload.CompanyIDs)
	if len(companies) == 0 {
		v.Add("companyIds", "select at least one company")
	}
	for _, id := range companies {
		if !slices.Contains(user.CompanyIDs, id) {
			v.Add("companyIds", "company "+id+" is outside of your scope")
		}
	}
	emp := core.Employee{
		EmpID:       chi.URLParam(r, "empID"),
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Email:       strings.TrimSpace(payload.Email),
		Gender:      payload.Gender,
		JobLocation: payload.JobLocation,
		Department:  payload.Department,
		ManagerID:   strings.TrimSpace(payload.ManagerID),
		Status:      strings.ToLower(payload.Status),
		CompanyIDs:  companies,
	}
	if payload.HireDate != "" {
		if hired, ok := v.Date("hireDate", payload.HireDate); ok {
			emp.HireDate = &hired
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Store.UpsertEmployee(r.Context(), emp); err != nil {
		slog.Error("employee upsert failed", "empId", emp.EmpID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to save employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}
