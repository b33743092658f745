package reports

import (
	"context"

	"hradmin/internal/platform/querier"
)

// resignationPending is the emp_resignations status of a request still waiting on HR.
const resignationPending = 5

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) PendingResignations(ctx context.Context, scope []string) (int, error) {
	if len(scope) == 0 {
		return 0, nil
	}
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM emp_resignations r
    JOIN employees e ON e.emp_id = r.emp_id
    WHERE r.status = $1 AND e.company_ids && $2
  `, resignationPending, scope).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
