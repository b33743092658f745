package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hradmin/internal/app/server"
	"hradmin/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

type outcome struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type batchResult struct {
	Outcomes []outcome `json:"outcomes"`
}

func TestYearEndJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:           dbURL,
		JWTSecret:             "test-secret",
		TokenTTL:              time.Hour,
		Environment:           "test",
		MigrationsDir:         filepath.Join("..", "..", "..", "..", "migrations"),
		RunMigrations:         true,
		RunSeed:               true,
		SeedAdminEmpID:        "HRJOURNEY",
		SeedAdminEmail:        "journey-admin@test.local",
		SeedAdminPassword:     "ChangeMe123!",
		SeedCompanyID:         "journey-co",
		EmailFrom:             "no-reply@test.local",
		MaxBodyBytes:          1048576,
		RateLimitPerMinute:    1000,
		PendingSLAWorkingDays: 3,
		CCLimit:               5,
	}

	ctx := context.Background()
	app, err := server.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()
	base := ts.URL + "/api/v1"

	token := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	suffix := time.Now().UnixNano()
	empID := fmt.Sprintf("J%d", suffix)
	leaveName := fmt.Sprintf("Journey Leave %d", suffix)

	var policy struct {
		ID string `json:"id"`
	}
	decode(t, sendJSON(t, client, http.MethodPost, base+"/leave/policies", token, map[string]any{
		"leaveName": leaveName,
		"grantDays": 10,
	}, http.StatusCreated), &policy)

	sendJSON(t, client, http.MethodPut, base+"/employees/"+empID, token, map[string]any{
		"firstName":  "Journey",
		"lastName":   "Tester",
		"email":      "journey@example.com",
		"status":     "active",
		"companyIds": []string{cfg.SeedCompanyID},
	}, http.StatusOK)

	var grant batchResult
	decode(t, sendJSON(t, client, http.MethodPost, base+"/leave/grants", token, map[string]any{
		"empIds":    []string{empID},
		"policyIds": []string{policy.ID},
		"year":      2024,
	}, http.StatusOK), &grant)
	if len(grant.Outcomes) != 1 || grant.Outcomes[0].Kind != "success" {
		t.Fatalf("unexpected grant outcomes: %+v", grant.Outcomes)
	}

	var requestID string
	err = app.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (emp_id, leave_type, from_date, to_date, leave_status, created_at)
    VALUES ($1, $2, '2024-03-04', '2024-03-05', 5, now() - interval '10 days')
    RETURNING id::text
  `, empID, leaveName).Scan(&requestID)
	if err != nil {
		t.Fatalf("insert leave request: %v", err)
	}

	var approved batchResult
	decode(t, sendJSON(t, client, http.MethodPost, base+"/year-end/approve", token, map[string]any{"requestIds": []string{requestID}}, http.StatusOK), &approved)
	if approved.Outcomes[0].Kind != "success" {
		t.Fatalf("expected approval success, got %+v", approved.Outcomes)
	}
	decode(t, sendJSON(t, client, http.MethodPost, base+"/year-end/approve", token, map[string]any{"requestIds": []string{requestID}}, http.StatusOK), &approved)
	if approved.Outcomes[0].Kind != "warning" {
		t.Fatalf("expected second approval to warn, got %+v", approved.Outcomes)
	}

	var balances struct {
		Details []struct {
			LeaveName        string `json:"leaveName"`
			RemainingBalance int    `json:"remainingBalance"`
		} `json:"details"`
	}
	decode(t, sendJSON(t, client, http.MethodGet, base+"/leave/balances/"+empID+"?year=2024", token, nil, http.StatusOK), &balances)
	if len(balances.Details) != 1 || balances.Details[0].RemainingBalance != 8 {
		t.Fatalf("expected 8 days remaining, got %+v", balances.Details)
	}

	var preview struct {
		Entries   []json.RawMessage `json:"entries"`
		NoMatches bool              `json:"noMatches"`
	}
	lapseBody := map[string]any{"policyIds": []string{policy.ID}, "year": 2024}
	decode(t, sendJSON(t, client, http.MethodPost, base+"/year-end/lapse/preview", token, lapseBody, http.StatusOK), &preview)
	if len(preview.Entries) != 1 {
		t.Fatalf("expected one lapse candidate, got %d", len(preview.Entries))
	}

	var run struct {
		Applied *struct {
			Lapsed int `json:"lapsed"`
		} `json:"applied"`
	}
	decode(t, sendJSON(t, client, http.MethodPost, base+"/year-end/lapse", token, map[string]any{
		"policyIds": []string{policy.ID},
		"year":      2024,
		"confirm":   true,
	}, http.StatusOK), &run)
	if run.Applied == nil || run.Applied.Lapsed != 1 {
		t.Fatalf("expected one lapsed entry, got %+v", run.Applied)
	}

	preview.Entries = nil
	decode(t, sendJSON(t, client, http.MethodPost, base+"/year-end/lapse/preview", token, lapseBody, http.StatusOK), &preview)
	if !preview.NoMatches || len(preview.Entries) != 0 {
		t.Fatalf("expected second preview to be empty, got %+v", preview)
	}

	sendJSON(t, client, http.MethodPut, base+"/leave/policies/"+policy.ID, token, map[string]any{
		"leaveName": leaveName,
		"grantDays": 12,
	}, http.StatusConflict)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	var payload struct {
		Token string `json:"token"`
	}
	decode(t, sendJSON(t, client, http.MethodPost, baseURL+"/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, http.StatusOK), &payload)
	if payload.Token == "" {
		t.Fatal("expected token")
	}
	return payload.Token
}

func decode(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func sendJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, want, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}
