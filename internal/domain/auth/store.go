package auth

import (
	"context"

	"hradmin/internal/platform/querier"
)

const UserStatusActive = "active"

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID         string
	EmpID      string
	RoleName   string
	Password   string
	CompanyIDs []string
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.emp_id, u.role, u.password_hash, e.company_ids
    FROM hr_users u
    JOIN employees e ON e.emp_id = u.emp_id
    WHERE lower(u.email) = lower($1) AND u.status = $2
  `, email, UserStatusActive).Scan(&out.ID, &out.EmpID, &out.RoleName, &out.Password, &out.CompanyIDs)
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE hr_users SET last_login = now() WHERE id = $1", userID)
	return err
}
