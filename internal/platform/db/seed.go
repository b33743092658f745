package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"hradmin/internal/domain/auth"
	"hradmin/internal/domain/leave"
	"hradmin/internal/platform/config"
)

// Seed installs the default leave catalog and, when credentials are configured, the first
// HR administrator. It is safe to run on every start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePolicies(ctx, pool); err != nil {
		return err
	}
	return ensureAdminUser(ctx, pool, cfg)
}

func ensurePolicies(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range leave.DefaultCatalog {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_policies (leave_name, grant_days)
      VALUES ($1, $2)
      ON CONFLICT (leave_name) DO NOTHING
    `, p.LeaveName, p.GrantDays); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.LeaveName, err)
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}

	var exists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM hr_users WHERE email = $1)", email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := pool.Exec(ctx, `
    INSERT INTO employees (emp_id, first_name, last_name, email, employee_status, company_ids)
    VALUES ($1, 'HR', 'Administrator', $2, 'active', $3)
    ON CONFLICT (emp_id) DO NOTHING
  `, cfg.SeedAdminEmpID, email, []string{cfg.SeedCompanyID}); err != nil {
		return fmt.Errorf("seed admin employee: %w", err)
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO hr_users (emp_id, email, password_hash, role)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (emp_id) DO NOTHING
  `, cfg.SeedAdminEmpID, email, hash, auth.RoleHR)
	return err
}
