package leave

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultCCLimit               = 5
	DefaultPendingSLAWorkingDays = 3
)

type Service struct {
	Store     StoreAPI
	Directory Directory
	Notifier  Notifier
	Jobs      JobRunner

	CCLimit               int
	PendingSLAWorkingDays int
	Now                   func() time.Time
}

var validate = validator.New()

func NewService(store StoreAPI, directory Directory, notifier Notifier, jobs JobRunner) *Service {
	return &Service{
		Store:                 store,
		Directory:             directory,
		Notifier:              notifier,
		Jobs:                  jobs,
		CCLimit:               DefaultCCLimit,
		PendingSLAWorkingDays: DefaultPendingSLAWorkingDays,
		Now:                   time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func validEmail(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}

// runJob records fn as a job run when a runner is configured.
func (s *Service) runJob(ctx context.Context, jobType, actorID string, fn func(context.Context) (any, error)) (any, error) {
	if s.Jobs == nil {
		return fn(ctx)
	}
	return s.Jobs.RunNow(ctx, jobType, actorID, fn)
}
