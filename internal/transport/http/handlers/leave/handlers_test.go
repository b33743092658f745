package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/core"
	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/jobs"
	"hradmin/internal/transport/http/api"
	"hradmin/internal/transport/http/middleware"
)

var testNow = time.Date(2024, time.December, 20, 10, 0, 0, 0, time.UTC)

type stubService struct {
	err error

	grantIn     leave.GrantInput
	runIn       leave.RunInput
	decided     []string
	decideScope []string
	snapshot    leave.EmployeeBalanceSnapshot
	reports     []leave.EmployeeBalanceReport
	preview     leave.LapsePreview
	batch       leave.BatchResult
	pendScope   []string
}

func (s *stubService) ListPolicies(context.Context) ([]leave.LeavePolicy, error) {
	return []leave.LeavePolicy{{ID: "p-sick", LeaveName: "Sick Leave", GrantDays: 12}}, s.err
}

func (s *stubService) CreatePolicy(_ context.Context, in leave.PolicyInput) (leave.LeavePolicy, error) {
	return leave.LeavePolicy{ID: "p-new", LeaveName: in.LeaveName, GrantDays: in.GrantDays}, s.err
}

func (s *stubService) UpdatePolicy(_ context.Context, id string, in leave.PolicyInput) (leave.LeavePolicy, leave.LeavePolicy, error) {
	before := leave.LeavePolicy{ID: id, LeaveName: "Sick Leave", GrantDays: 12}
	return before, leave.LeavePolicy{ID: id, LeaveName: in.LeaveName, GrantDays: in.GrantDays}, s.err
}

func (s *stubService) Grant(_ context.Context, in leave.GrantInput) (leave.BatchResult, error) {
	s.grantIn = in
	return s.batch, s.err
}

func (s *stubService) Balances(context.Context, string, int) (leave.EmployeeBalanceSnapshot, error) {
	return s.snapshot, s.err
}

func (s *stubService) Details(context.Context, string, int) ([]leave.BalanceDetail, error) {
	return []leave.BalanceDetail{{LeaveName: "Sick Leave", GrantDays: 10, Consumed: 12, RemainingBalance: -2}}, s.err
}

func (s *stubService) PendingQueue(_ context.Context, scope []string, _ time.Time) ([]leave.PendingItem, error) {
	s.pendScope = scope
	return nil, s.err
}

func (s *stubService) Approve(_ context.Context, _ string, scope, ids []string) (leave.BatchResult, error) {
	s.decideScope, s.decided = scope, ids
	return s.batch, s.err
}

func (s *stubService) Reject(_ context.Context, _ string, scope, ids []string) (leave.BatchResult, error) {
	s.decideScope, s.decided = scope, ids
	return s.batch, s.err
}

func (s *stubService) SendReminders(_ context.Context, scope, ids []string) (leave.BatchResult, error) {
	s.decideScope, s.decided = scope, ids
	return s.batch, s.err
}

func (s *stubService) BalanceReport(context.Context, []string, int, string) ([]leave.EmployeeBalanceReport, error) {
	return s.reports, s.err
}

func (s *stubService) FilterLapseCandidates(context.Context, []string, []string, int) (leave.LapsePreview, error) {
	return s.preview, s.err
}

func (s *stubService) Run(_ context.Context, in leave.RunInput) (leave.RunResult, error) {
	s.runIn = in
	return leave.RunResult{Preview: s.preview, Applied: &leave.LapseResult{Lapsed: len(s.preview.Entries), LapsedAt: testNow}}, s.err
}

type stubDirectory map[string]core.Employee

func (d stubDirectory) GetEmployee(_ context.Context, empID string) (core.Employee, error) {
	emp, ok := d[empID]
	if !ok {
		return core.Employee{}, core.ErrEmployeeNotFound
	}
	return emp, nil
}

type stubRuns struct{}

func (stubRuns) ListRuns(context.Context, string, int) ([]jobs.Run, error) {
	return []jobs.Run{{ID: "run-1", JobType: jobs.JobYearEndLapse, Status: jobs.StatusCompleted}}, nil
}

type stubAudit struct {
	actions []string
}

func (a *stubAudit) Record(_ context.Context, _, action, _, entityID, _, _ string, _, _ any) error {
	a.actions = append(a.actions, action+":"+entityID)
	return nil
}

type stubMetrics map[string]int

func (m stubMetrics) RecordOutcomes(operation string, counts map[string]int) {
	for kind, n := range counts {
		m[operation+"."+kind] += n
	}
}

type harness struct {
	svc     *stubService
	audit   *stubAudit
	metrics stubMetrics
	router  chi.Router
}

func newHarness(role string) *harness {
	h := &harness{svc: &stubService{}, audit: &stubAudit{}, metrics: stubMetrics{}}
	directory := stubDirectory{
		"E1": {EmpID: "E1", CompanyIDs: []string{"acme"}},
		"E4": {EmpID: "E4", CompanyIDs: []string{"globex"}},
	}
	handler := NewHandler(h.svc, directory, auth.StaticPermissions{}, h.audit, stubRuns{}, h.metrics)
	handler.Now = func() time.Time { return testNow }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := auth.UserContext{EmpID: "HR1", RoleName: role, CompanyIDs: []string{"acme"}}
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	handler.RegisterRoutes(r)
	h.router = r
	return h
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestValidationErrorsRenderFieldIssues(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.err = &leave.ValidationError{Issues: []leave.FieldIssue{{Field: "requestIds", Reason: "select at least one"}}}

	rec := h.do(http.MethodPost, "/year-end/approve", `{"requestIds":[" "]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Contains(t, rec.Body.String(), "select at least one")
}

func TestApproveRecordsMetricsAndAudit(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.batch = leave.BatchResult{
		Operation: leave.OperationApprove,
		Outcomes: []leave.Outcome{
			{ID: "r1", Kind: leave.OutcomeSuccess},
			{ID: "r2", Kind: leave.OutcomeWarning, Message: "leave request already approved"},
		},
		Summary: leave.Summary{Kind: leave.OutcomeWarning, Counts: map[leave.OutcomeKind]int{leave.OutcomeSuccess: 1, leave.OutcomeWarning: 1}},
	}

	rec := h.do(http.MethodPost, "/year-end/approve", `{"requestIds":[" r1 ","r2",""]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"r1", "r2"}, h.svc.decided)
	assert.Equal(t, []string{"acme"}, h.svc.decideScope)
	assert.Equal(t, 1, h.metrics["approve.success"])
	assert.Equal(t, 1, h.metrics["approve.warning"])
	assert.Equal(t, []string{"leave.request.approve:r1"}, h.audit.actions)
}

func TestRemindAndRejectUseCallerScope(t *testing.T) {
	for _, target := range []string{"/year-end/reject", "/year-end/remind"} {
		h := newHarness(auth.RoleHR)
		h.svc.batch = leave.BatchResult{Operation: leave.OperationRemind}
		rec := h.do(http.MethodPost, target, `{"requestIds":["r1"]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"acme"}, h.svc.decideScope, target)
		assert.Equal(t, []string{"r1"}, h.svc.decided, target)
	}
}

func TestPayloadTagsRejectBeforeService(t *testing.T) {
	h := newHarness(auth.RoleHR)
	cases := []struct {
		method, target, body, field string
	}{
		{http.MethodPost, "/year-end/approve", `{"requestIds":[]}`, "requestIds"},
		{http.MethodPost, "/leave/grants", `{"empIds":["E1"],"policyIds":[],"year":2024}`, "policyIds"},
		{http.MethodPost, "/leave/grants", `{"empIds":["E1"],"policyIds":["p-sick"],"year":1999}`, "year"},
		{http.MethodPost, "/year-end/lapse/preview", `{"policyIds":["p-sick"]}`, "year"},
		{http.MethodPost, "/leave/policies", `{"leaveName":"  ","grantDays":3}`, "leaveName"},
		{http.MethodPut, "/leave/policies/p-sick", `{"leaveName":"Sick Leave","grantDays":-1}`, "grantDays"},
	}
	for _, tc := range cases {
		rec := h.do(tc.method, tc.target, tc.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.target)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Error, tc.target)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Contains(t, rec.Body.String(), `"field":"`+tc.field+`"`, tc.target)
	}
	assert.Nil(t, h.svc.decided)
	assert.Empty(t, h.svc.grantIn.PolicyIDs)
}

func TestManagerCannotGrantOrLapse(t *testing.T) {
	h := newHarness(auth.RoleManager)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/leave/grants", `{"empIds":["E1"],"policyIds":["p-sick"]}`).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/year-end/lapse", `{"policyIds":["p-sick"],"year":2024,"confirm":true}`).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/year-end/pending", "").Code)
}

func TestGrantDefaultsYearAndScope(t *testing.T) {
	h := newHarness(auth.RoleHR)
	rec := h.do(http.MethodPost, "/leave/grants", `{"empIds":["E1"],"policyIds":["p-sick"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2024, h.svc.grantIn.Year)
	assert.Equal(t, []string{"acme"}, h.svc.grantIn.CompanyScope)
	assert.Equal(t, "HR1", h.svc.grantIn.ActorID)
}

func TestLapseRequiresConfirm(t *testing.T) {
	h := newHarness(auth.RoleHR)
	rec := h.do(http.MethodPost, "/year-end/lapse", `{"policyIds":["p-sick"],"year":2024}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.svc.runIn.PolicyIDs)
}

func TestLapseConflictReturnsEntryIDs(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.err = &leave.LapseConflictError{EntryIDs: []string{"entry-2"}}

	rec := h.do(http.MethodPost, "/year-end/lapse", `{"policyIds":["p-sick"],"year":2024,"confirm":true}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "already_lapsed", env.Error.Code)
	assert.Contains(t, rec.Body.String(), "entry-2")
	assert.Empty(t, h.audit.actions)
}

func TestLapseAudited(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.preview = leave.LapsePreview{Year: 2024, LeaveNames: []string{"Sick Leave"}, Entries: []leave.LedgerEntry{{ID: "entry-1", EmpID: "E1"}}}

	rec := h.do(http.MethodPost, "/year-end/lapse", `{"policyIds":["p-sick"],"year":2024,"confirm":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, h.svc.runIn.Confirm)
	assert.Equal(t, 1, h.metrics["lapse.success"])
	assert.Equal(t, []string{"leave.yearend.lapse:"}, h.audit.actions)
}

func TestBalances(t *testing.T) {
	h := newHarness(auth.RoleHR)

	rec := h.do(http.MethodGet, "/leave/balances/E1?year=2024", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ledger_not_found", decodeEnvelope(t, rec).Error.Code)

	h.svc.snapshot = leave.EmployeeBalanceSnapshot{EmpID: "E1", Year: 2024, LedgerFound: true, Balances: map[leave.LeaveTypeKey]int{}}
	rec = h.do(http.MethodGet, "/leave/balances/E1?year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"remainingBalance":-2`)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/leave/balances/E4?year=2024", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/leave/balances/E9", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/leave/balances/E1?year=24", "").Code)
}

func TestPolicyErrors(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.err = leave.ErrPolicyLocked
	rec := h.do(http.MethodPut, "/leave/policies/p-sick", `{"leaveName":"Sick Leave","grantDays":14}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.svc.err = errors.New("connection reset")
	rec = h.do(http.MethodPost, "/leave/policies", `{"leaveName":"Study Leave","grantDays":3}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "leave_policy_create_failed", decodeEnvelope(t, rec).Error.Code)

	h.svc.err = nil
	rec = h.do(http.MethodPut, "/leave/policies/p-sick", `{"leaveName":"Sick Leave","grantDays":14}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"leave.policy.update:p-sick"}, h.audit.actions)
}

func TestBalanceReportExport(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.reports = []leave.EmployeeBalanceReport{{
		EmpID:        "E1",
		EmployeeName: "Asha Rao",
		LeaveDetails: []leave.BalanceDetail{{LeaveName: "Sick Leave", GrantDays: 10, Consumed: 2, RemainingBalance: 8}},
	}}

	rec := h.do(http.MethodGet, "/year-end/balances?year=2024&format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = h.do(http.MethodGet, "/year-end/balances?year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha Rao")

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/year-end/balances?format=csv", "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/year-end/balances?company=globex", "").Code)
}

func TestLapseReportPDF(t *testing.T) {
	h := newHarness(auth.RoleHR)
	h.svc.preview = leave.LapsePreview{
		Year:       2024,
		LeaveNames: []string{"Sick Leave"},
		Entries: []leave.LedgerEntry{{
			ID:       "entry-1",
			EmpID:    "E1",
			BatchID:  "batch-1",
			Policies: []leave.PolicySnapshot{{PolicyID: "p-sick", LeaveName: "Sick Leave", GrantDays: 10}},
		}},
	}

	rec := h.do(http.MethodGet, "/year-end/lapse/report.pdf?year=2024&policyId=p-sick", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pdfContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestListRuns(t *testing.T) {
	h := newHarness(auth.RoleHR)
	rec := h.do(http.MethodGet, "/year-end/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-1")
}
