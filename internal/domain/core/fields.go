package core

import (
	"slices"
	"strings"
)

// IsEligible reports whether an employee takes part in leave granting and year-end runs.
func IsEligible(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusActive, StatusOnProbation:
		return true
	}
	return false
}

// NormalizeScope trims, dedupes and sorts a company scope.
func NormalizeScope(scope []string) []string {
	out := make([]string, 0, len(scope))
	for _, id := range scope {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// InScope reports whether any of companyIDs belongs to scope.
func InScope(companyIDs, scope []string) bool {
	for _, id := range companyIDs {
		if slices.Contains(scope, id) {
			return true
		}
	}
	return false
}
