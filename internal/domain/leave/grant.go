package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"hradmin/internal/platform/jobs"
)

const OperationGrant = "grant"

type GrantInput struct {
	EmpIDs       []string
	PolicyIDs    []string
	Year         int
	CompanyScope []string
	ActorID      string
}

// Grant creates one ledger entry per employee for the year, all sharing a new batch ID and
// snapshotting the policies as they are now. Employees outside the eligible set and
// employees already holding one of the leave names that year get warnings.
func (s *Service) Grant(ctx context.Context, in GrantInput) (BatchResult, error) {
	empIDs, policyIDs := distinct(in.EmpIDs), distinct(in.PolicyIDs)
	v := &validation{}
	if len(empIDs) == 0 {
		v.add("empIds", "select at least one employee", ErrEmptyBatch)
	}
	if len(policyIDs) == 0 {
		v.add("policyIds", "select at least one leave type", ErrNoLeaveTypes)
	}
	validateYear(v, in.Year)
	if err := v.err(); err != nil {
		return BatchResult{Operation: OperationGrant}, err
	}

	policies, err := s.GetPolicies(ctx, policyIDs)
	if err != nil {
		return BatchResult{Operation: OperationGrant}, err
	}
	snapshots := make([]PolicySnapshot, 0, len(policies))
	for _, p := range policies {
		snap, err := p.Snapshot()
		if err != nil {
			return BatchResult{Operation: OperationGrant}, err
		}
		snapshots = append(snapshots, snap)
	}

	out, err := s.runJob(ctx, jobs.JobLeaveGrant, in.ActorID, func(ctx context.Context) (any, error) {
		eligible, err := s.SelectEligibleEmployees(ctx, in.CompanyScope)
		if err != nil {
			return nil, fmt.Errorf("select eligible employees: %w", err)
		}
		allowed := make(map[string]struct{}, len(eligible))
		for _, id := range eligible {
			allowed[id] = struct{}{}
		}
		existing, err := s.Store.UnlapsedEntries(ctx, empIDs, in.Year)
		if err != nil {
			return nil, fmt.Errorf("load ledger entries: %w", err)
		}
		held := map[string][]LedgerEntry{}
		for _, e := range existing {
			held[e.EmpID] = append(held[e.EmpID], e)
		}

		batchID := uuid.NewString()
		return foldBatch(OperationGrant, "employee(s)", "granted", empIDs, func(empID string) Outcome {
			if _, ok := allowed[empID]; !ok {
				return warning(empID, fmt.Sprintf("%s: %s", ErrEmployeeNotFound, empID))
			}
			if dup := alreadyGranted(held[empID], snapshots); len(dup) > 0 {
				return warning(empID, fmt.Sprintf("%s %d: %s", ErrAlreadyGranted, in.Year, strings.Join(dup, ", ")))
			}
			entry, err := s.Store.InsertLedgerEntry(ctx, LedgerEntry{
				EmpID:          empID,
				GrantedForYear: in.Year,
				Policies:       snapshots,
				BatchID:        batchID,
			})
			if err != nil {
				slog.Error("ledger entry insert failed", "empId", empID, "year", in.Year, "err", err)
				return failure(empID, "leave grant "+retryLaterMessage)
			}
			return success(empID, "ledger entry "+entry.ID+" created")
		}), nil
	})
	if err != nil {
		return BatchResult{Operation: OperationGrant}, err
	}
	result, _ := out.(BatchResult)
	return result, nil
}

func alreadyGranted(entries []LedgerEntry, snapshots []PolicySnapshot) []string {
	var dup []string
	for _, snap := range snapshots {
		for _, e := range entries {
			if _, ok := e.GrantFor(snap.LeaveName); ok {
				dup = append(dup, snap.LeaveName)
				break
			}
		}
	}
	return dup
}
