package leave

import (
	"context"
	"fmt"
	"strings"
)

type PolicyInput struct {
	LeaveName string `json:"leaveName" validate:"notblank,max=100"`
	GrantDays int    `json:"grantDays" validate:"gte=0,lte=366"`
}

func (in PolicyInput) validate() error {
	v := &validation{}
	if strings.TrimSpace(in.LeaveName) == "" {
		v.add("leaveName", "is required", ErrInvalidSnapshot)
	}
	if in.GrantDays < 0 {
		v.add("grantDays", "must not be negative", ErrInvalidSnapshot)
	}
	return v.err()
}

func (s *Service) ListPolicies(ctx context.Context) ([]LeavePolicy, error) {
	return s.Store.ListPolicies(ctx)
}

// GetPolicies resolves ids to policies. Any unknown id fails with ErrPolicyNotFound.
func (s *Service) GetPolicies(ctx context.Context, ids []string) ([]LeavePolicy, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		v := &validation{}
		v.add("policyIds", "select at least one leave type", ErrNoLeaveTypes)
		return nil, v.err()
	}
	policies, err := s.Store.PoliciesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	if len(policies) != len(ids) {
		known := make(map[string]struct{}, len(policies))
		for _, p := range policies {
			known[p.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
			}
		}
	}
	return policies, nil
}

func (s *Service) CreatePolicy(ctx context.Context, in PolicyInput) (LeavePolicy, error) {
	if err := in.validate(); err != nil {
		return LeavePolicy{}, err
	}
	return s.Store.CreatePolicy(ctx, LeavePolicy{LeaveName: strings.TrimSpace(in.LeaveName), GrantDays: in.GrantDays})
}

// UpdatePolicy renames or re-sizes a policy. Policies snapshotted by a grant for an earlier
// year are locked.
func (s *Service) UpdatePolicy(ctx context.Context, policyID string, in PolicyInput) (LeavePolicy, LeavePolicy, error) {
	if err := in.validate(); err != nil {
		return LeavePolicy{}, LeavePolicy{}, err
	}
	current, err := s.GetPolicies(ctx, []string{policyID})
	if err != nil {
		return LeavePolicy{}, LeavePolicy{}, err
	}
	before := current[0]
	next := LeavePolicy{ID: before.ID, LeaveName: strings.TrimSpace(in.LeaveName), GrantDays: in.GrantDays}
	if next.LeaveName == before.LeaveName && next.GrantDays == before.GrantDays {
		return before, before, nil
	}

	locked, err := s.Store.PolicyReferencedBefore(ctx, policyID, s.now().Year())
	if err != nil {
		return LeavePolicy{}, LeavePolicy{}, fmt.Errorf("check policy references: %w", err)
	}
	if locked {
		return LeavePolicy{}, LeavePolicy{}, fmt.Errorf("%w: %s", ErrPolicyLocked, before.LeaveName)
	}
	updated, err := s.Store.UpdatePolicy(ctx, next)
	if err != nil {
		return LeavePolicy{}, LeavePolicy{}, err
	}
	return before, updated, nil
}

// distinct drops blanks and repeats while keeping order.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DefaultCatalog is the policy set installed on a fresh database.
var DefaultCatalog = []PolicyInput{
	{LeaveName: NameSick, GrantDays: 12},
	{LeaveName: NameCasual, GrantDays: 12},
	{LeaveName: NameCasualProbation, GrantDays: 6},
	{LeaveName: NameMarriage, GrantDays: 5},
	{LeaveName: NameMaternity, GrantDays: 182},
	{LeaveName: NamePaternity, GrantDays: 5},
	{LeaveName: NameLossOfPay, GrantDays: 0},
}
