package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hradmin/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const employeeColumns = `emp_id, first_name, last_name, email, gender, job_location, department,
    COALESCE(manager_id, ''), hire_date, employee_status, company_ids, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(
		&emp.EmpID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Gender, &emp.JobLocation, &emp.Department,
		&emp.ManagerID, &emp.HireDate, &emp.Status, &emp.CompanyIDs, &emp.CreatedAt, &emp.UpdatedAt,
	)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, empID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+" FROM employees WHERE emp_id = $1", empID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, empID)
	}
	return emp, err
}

// ListEmployees returns every employee whose company set intersects scope, ordered by emp ID.
func (s *Store) ListEmployees(ctx context.Context, scope []string) ([]Employee, error) {
	scope = NormalizeScope(scope)
	if len(scope) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+" FROM employees WHERE company_ids && $1 ORDER BY emp_id", scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// EligibleEmpIDs returns the sorted IDs of active or on-probation employees within scope.
func (s *Store) EligibleEmpIDs(ctx context.Context, scope []string) ([]string, error) {
	scope = NormalizeScope(scope)
	if len(scope) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT emp_id
    FROM employees
    WHERE employee_status IN ($1, $2) AND company_ids && $3
    ORDER BY emp_id
  `, StatusActive, StatusOnProbation, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) EmployeesByIDs(ctx context.Context, empIDs []string) (map[string]Employee, error) {
	out := make(map[string]Employee, len(empIDs))
	if len(empIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, "SELECT "+employeeColumns+" FROM employees WHERE emp_id = ANY($1)", empIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out[emp.EmpID] = emp
	}
	return out, rows.Err()
}

func (s *Store) UpsertEmployee(ctx context.Context, emp Employee) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employees (emp_id, first_name, last_name, email, gender, job_location, department, manager_id, hire_date, employee_status, company_ids)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    ON CONFLICT (emp_id) DO UPDATE
      SET first_name = EXCLUDED.first_name,
          last_name = EXCLUDED.last_name,
          email = EXCLUDED.email,
          gender = EXCLUDED.gender,
          job_location = EXCLUDED.job_location,
          department = EXCLUDED.department,
          manager_id = EXCLUDED.manager_id,
          hire_date = EXCLUDED.hire_date,
          employee_status = EXCLUDED.employee_status,
          company_ids = EXCLUDED.company_ids,
          updated_at = now()
  `, emp.EmpID, emp.FirstName, emp.LastName, emp.Email, emp.Gender, emp.JobLocation, emp.Department,
		nullIfEmpty(emp.ManagerID), emp.HireDate, emp.Status, emp.CompanyIDs)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
