package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	JobYearEndLapse = "year_end_lapse"
	JobLeaveGrant   = "leave_grant"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	ActorID     string          `json:"actorId"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type RunStore interface {
	StartRun(ctx context.Context, jobType, actorID string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
	ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error)
}

type Service struct {
	Store RunStore
}

func New(store RunStore) *Service {
	return &Service{Store: store}
}

// RunNow executes run synchronously and records it in job_runs. Bookkeeping failures are logged only.
func (s *Service) RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error) {
	runID, err := s.Store.StartRun(ctx, jobType, actorID)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", jobType, "err", err)
	}

	details, err := run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}

	payload := map[string]any{"result": details}
	if err != nil {
		payload["error"] = err.Error()
	}
	detailsJSON, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "jobType", jobType, "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Store.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "jobType", jobType, "runId", runID, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.Store.ListRuns(ctx, jobType, limit)
}
