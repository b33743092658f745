package notifications

import "context"

func (s *Store) CreateNotification(ctx context.Context, n Notification) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (emp_id, notification_type, leave_type, assignee)
    VALUES ($1,$2,$3,$4)
  `, n.EmpID, n.Kind, n.LeaveType, n.Assignee)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, assignee string, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, emp_id, notification_type, leave_type, assignee, read_at, created_at
    FROM notifications
    WHERE assignee = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, assignee, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EmpID, &n.Kind, &n.LeaveType, &n.Assignee, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, assignee string) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications WHERE assignee = $1", assignee).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, assignee, notificationID string) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE assignee = $1 AND id = $2 AND read_at IS NULL
  `, assignee, notificationID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
