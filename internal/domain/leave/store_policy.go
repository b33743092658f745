package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const policyColumns = "id, leave_name, grant_days, created_at, updated_at"

func scanPolicy(row pgx.Row) (LeavePolicy, error) {
	var p LeavePolicy
	err := row.Scan(&p.ID, &p.LeaveName, &p.GrantDays, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPolicies(rows pgx.Rows) ([]LeavePolicy, error) {
	defer rows.Close()
	var out []LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+policyColumns+" FROM leave_policies ORDER BY leave_name")
	if err != nil {
		return nil, err
	}
	return collectPolicies(rows)
}

func (s *Store) PoliciesByIDs(ctx context.Context, ids []string) ([]LeavePolicy, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, "SELECT "+policyColumns+" FROM leave_policies WHERE id::text = ANY($1) ORDER BY leave_name", ids)
	if err != nil {
		return nil, err
	}
	return collectPolicies(rows)
}

func (s *Store) CreatePolicy(ctx context.Context, policy LeavePolicy) (LeavePolicy, error) {
	created, err := scanPolicy(s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (leave_name, grant_days)
    VALUES ($1,$2)
    RETURNING `+policyColumns, policy.LeaveName, policy.GrantDays))
	if isUniqueViolation(err) {
		return LeavePolicy{}, fmt.Errorf("%w: %s", ErrDuplicatePolicy, policy.LeaveName)
	}
	return created, err
}

func (s *Store) UpdatePolicy(ctx context.Context, policy LeavePolicy) (LeavePolicy, error) {
	updated, err := scanPolicy(s.DB.QueryRow(ctx, `
    UPDATE leave_policies
    SET leave_name = $1, grant_days = $2, updated_at = now()
    WHERE id::text = $3
    RETURNING `+policyColumns, policy.LeaveName, policy.GrantDays, policy.ID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return LeavePolicy{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, policy.ID)
	case isUniqueViolation(err):
		return LeavePolicy{}, fmt.Errorf("%w: %s", ErrDuplicatePolicy, policy.LeaveName)
	}
	return updated, err
}

// PolicyReferencedBefore reports whether any ledger entry granted before year snapshots the policy.
func (s *Store) PolicyReferencedBefore(ctx context.Context, policyID string, year int) (bool, error) {
	var referenced bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_ledger_entries
      WHERE granted_for_year < $1
        AND policies @> jsonb_build_array(jsonb_build_object('policy_id', $2::text))
    )
  `, year, policyID).Scan(&referenced)
	return referenced, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
