package dashboardhandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/reports"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
	"hradmin/internal/transport/http/shared"
)

type Reporter interface {
	Dashboard(ctx context.Context, scope []string, now time.Time) (reports.DashboardStats, error)
}

type Handler struct {
	Service Reporter
	Perms   middleware.PermissionStore
	Now     func() time.Time
}

func NewHandler(service Reporter, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermDashboardRead, h.Perms)).Get("/dashboard", h.handleDashboard)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
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

	stats, err := h.Service.Dashboard(r.Context(), scope, h.Now())
	if err != nil {
		slog.Error("dashboard failed", "scope", scope, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}
