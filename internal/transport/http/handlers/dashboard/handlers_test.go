package dashboardhandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/reports"
	"hradmin/internal/transport/http/middleware"
)

type stubReporter struct {
	scope []string
	err   error
}

func (s *stubReporter) Dashboard(_ context.Context, scope []string, _ time.Time) (reports.DashboardStats, error) {
	s.scope = scope
	return reports.DashboardStats{TotalEmployees: 3}, s.err
}

func serve(t *testing.T, rep *stubReporter, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(rep, auth.StaticPermissions{}).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{
		EmpID:      "HR1",
		RoleName:   auth.RoleHR,
		CompanyIDs: []string{"acme", "globex"},
	}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDashboardUsesCallerScope(t *testing.T) {
	rep := &stubReporter{}
	rec := serve(t, rep, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"acme", "globex"}, rep.scope)
	assert.Contains(t, rec.Body.String(), `"totalEmployees":3`)

	rec = serve(t, rep, "/dashboard?company=acme")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"acme"}, rep.scope)
}

func TestDashboardRejectsForeignCompany(t *testing.T) {
	rec := serve(t, &stubReporter{}, "/dashboard?company=initech")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardFailure(t *testing.T) {
	rec := serve(t, &stubReporter{err: errors.New("boom")}, "/dashboard")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
