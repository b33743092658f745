package shared

import (
	"net/http"
	"slices"
	"strings"
)

// CompanyScope narrows the caller's companies to the ?company= values, when present.
// It reports false when a requested company is outside the caller's scope.
func CompanyScope(r *http.Request, allowed []string) ([]string, bool) {
	var requested []string
	for _, raw := range r.URL.Query()["company"] {
		requested = append(requested, strings.Split(raw, ",")...)
	}
	requested = NormalizeIDs(requested)
	if len(requested) == 0 {
		return allowed, true
	}
	for _, id := range requested {
		if !slices.Contains(allowed, id) {
			return nil, false
		}
	}
	return requested, true
}
