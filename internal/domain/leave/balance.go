package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// RemainingBalance returns granted minus consumed days of leaveName for the year. The
// result is not clamped; over-consumption is reported as a negative balance.
func (s *Service) RemainingBalance(ctx context.Context, empID, leaveName string, year int) (int, error) {
	v := &validation{}
	if empID == "" {
		v.add("empId", "is required", ErrEmployeeNotFound)
	}
	validateYear(v, year)
	if err := v.err(); err != nil {
		return 0, err
	}

	entries, err := s.Store.UnlapsedEntries(ctx, []string{empID}, year)
	if err != nil {
		return 0, fmt.Errorf("load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: %s for %d", ErrLedgerNotFound, empID, year)
	}

	requests, err := s.Store.ApprovedRequests(ctx, empID, leaveName, year)
	if err != nil {
		return 0, fmt.Errorf("load approved requests: %w", err)
	}
	consumed := consumedByType(requests, year)[leaveName]
	return grantedDays(entries, leaveName) - consumed, nil
}

// Balances computes the fixed leave type snapshot for one employee. An employee with no
// unlapsed ledger entry gets LedgerFound=false and only zero or negative balances.
func (s *Service) Balances(ctx context.Context, empID string, year int) (EmployeeBalanceSnapshot, error) {
	snapshot := EmployeeBalanceSnapshot{EmpID: empID, Year: year}
	v := &validation{}
	validateYear(v, year)
	if err := v.err(); err != nil {
		return snapshot, err
	}

	if _, err := s.Directory.GetEmployee(ctx, empID); err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			slog.Warn("leave balances requested for unknown employee", "empId", empID, "year", year)
		}
		return snapshot, err
	}

	entries, err := s.Store.UnlapsedEntries(ctx, []string{empID}, year)
	if err != nil {
		return snapshot, fmt.Errorf("load ledger entries: %w", err)
	}
	requests, err := s.Store.ApprovedRequests(ctx, empID, "", year)
	if err != nil {
		return snapshot, fmt.Errorf("load approved requests: %w", err)
	}

	snapshot.LedgerFound = len(entries) > 0
	snapshot.Balances = computeBalances(entries, consumedByType(requests, year))
	return snapshot, nil
}

// Details returns one row per leave name granted to the employee for the year.
func (s *Service) Details(ctx context.Context, empID string, year int) ([]BalanceDetail, error) {
	v := &validation{}
	validateYear(v, year)
	if err := v.err(); err != nil {
		return nil, err
	}

	entries, err := s.Store.UnlapsedEntries(ctx, []string{empID}, year)
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s for %d", ErrLedgerNotFound, empID, year)
	}
	requests, err := s.Store.ApprovedRequests(ctx, empID, "", year)
	if err != nil {
		return nil, fmt.Errorf("load approved requests: %w", err)
	}
	return balanceDetails(entries, consumedByType(requests, year)), nil
}

func grantedDays(entries []LedgerEntry, leaveName string) int {
	total := 0
	for _, e := range entries {
		if days, ok := e.GrantFor(leaveName); ok {
			total += days
		}
	}
	return total
}

// consumedByType sums the working days of approved requests per leave type within year.
func consumedByType(requests []LeaveRequest, year int) map[string]int {
	out := map[string]int{}
	for _, r := range requests {
		if r.Status != StatusApproved {
			continue
		}
		out[r.LeaveType] += WorkingDaysInYear(r.FromDate, r.ToDate, year)
	}
	return out
}

func computeBalances(entries []LedgerEntry, consumed map[string]int) map[LeaveTypeKey]int {
	out := make(map[LeaveTypeKey]int, len(grantedTypes)+1)
	for _, t := range grantedTypes {
		out[t.Key] = grantedDays(entries, t.Name) - consumed[t.Name]
	}
	out[KeyLossOfPay] = consumed[NameLossOfPay]
	return out
}

func balanceDetails(entries []LedgerEntry, consumed map[string]int) []BalanceDetail {
	var order []string
	seen := map[string]struct{}{}
	for _, e := range entries {
		for _, p := range e.Policies {
			if _, ok := seen[p.LeaveName]; ok {
				continue
			}
			seen[p.LeaveName] = struct{}{}
			order = append(order, p.LeaveName)
		}
	}

	details := make([]BalanceDetail, 0, len(order))
	for _, name := range order {
		grant := grantedDays(entries, name)
		used := consumed[name]
		details = append(details, BalanceDetail{
			LeaveName:        name,
			GrantDays:        grant,
			Consumed:         used,
			RemainingBalance: grant - used,
		})
	}
	return details
}
