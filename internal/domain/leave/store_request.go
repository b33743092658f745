package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, emp_id, leave_type, from_date, to_date, reason, leave_status, cancel_status,
    applying_to, cc_to, COALESCE(action_by, ''), created_at, updated_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var (
		r          LeaveRequest
		applyingTo []byte
		ccTo       []byte
	)
	if err := row.Scan(
		&r.ID, &r.EmpID, &r.LeaveType, &r.FromDate, &r.ToDate, &r.Reason, &r.Status, &r.CancelStatus,
		&applyingTo, &ccTo, &r.ActionBy, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return LeaveRequest{}, err
	}
	if err := decodeRecipients(applyingTo, &r.ApplyingTo); err != nil {
		return LeaveRequest{}, fmt.Errorf("decode applying_to of request %s: %w", r.ID, err)
	}
	if err := decodeRecipients(ccTo, &r.CCTo); err != nil {
		return LeaveRequest{}, fmt.Errorf("decode cc_to of request %s: %w", r.ID, err)
	}
	return r, nil
}

func decodeRecipients(raw []byte, out *[]Recipient) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func collectRequests(rows pgx.Rows) ([]LeaveRequest, error) {
	defer rows.Close()
	var out []LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApprovedRequests returns approved requests overlapping year. An empty leaveType matches every type.
func (s *Store) ApprovedRequests(ctx context.Context, empID, leaveType string, year int) ([]LeaveRequest, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE emp_id = $1
      AND leave_status = $2
      AND ($3 = '' OR leave_type = $3)
      AND from_date <= $5 AND to_date >= $4
    ORDER BY from_date
  `, empID, StatusApproved, leaveType, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	r, err := scanRequest(s.DB.QueryRow(ctx, "SELECT "+requestColumns+" FROM leave_requests WHERE id::text = $1", requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	return r, err
}

// UpdateRequestStatus moves a request from one state to another only if it is still in from.
// It reports false when another writer changed the row first.
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID string, from, to StatusChange) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET leave_status = $1, cancel_status = $2, action_by = $3, updated_at = $4
    WHERE id::text = $5 AND leave_status = $6 AND cancel_status = $7
  `, to.Status, to.Cancel, to.ActionBy, to.At, requestID, from.Status, from.Cancel)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// PendingRequests returns requests awaiting action created on or before the given date, newest first.
func (s *Store) PendingRequests(ctx context.Context, empIDs []string, createdOnOrBefore time.Time) ([]LeaveRequest, error) {
	if len(empIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE emp_id = ANY($1)
      AND (leave_status = $2 OR (leave_status = $3 AND cancel_status = $4))
      AND created_at::date <= $5::date
    ORDER BY created_at DESC
  `, empIDs, StatusPending, StatusApproved, CancelRequested, createdOnOrBefore)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (s *Store) CountAwaiting(ctx context.Context, empIDs []string) (int, error) {
	if len(empIDs) == 0 {
		return 0, nil
	}
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE emp_id = ANY($1)
      AND (leave_status = $2 OR (leave_status = $3 AND cancel_status = $4))
  `, empIDs, StatusPending, StatusApproved, CancelRequested).Scan(&total)
	return total, err
}
