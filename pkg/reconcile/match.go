package reconcile

import (
	"context"
	"reflect"
	"strings"

	"github.com/vshn/datadog-downtime/pkg/types"
)

// FindMatching lists all downtimes and returns those that are not canceled,
// are active if activeOnly is set, and whose scope contains every tag of the
// given scope. Tags beyond the searched scope do not prevent a match.
func FindMatching(ctx context.Context, api DowntimeAPI, scope []string, activeOnly bool) ([]types.Downtime, error) {
	all, err := api.ListDowntimes(ctx)
	if err != nil {
		return nil, err
	}

	matching := []types.Downtime{}
	for _, d := range all {
		if d.Canceled != 0 {
			continue
		}
		if activeOnly && !d.Active {
			continue
		}
		if scopeContains(d.Scope, scope) {
			matching = append(matching, d)
		}
	}
	return matching, nil
}

// scopeContains reports whether every tag of sub appears in scope.
func scopeContains(scope []string, sub []string) bool {
	tags := scopeSet(scope)
	for _, t := range sub {
		if !tags[t] {
			return false
		}
	}
	return true
}

// scopesEqual compares two scopes as unordered tag sets.
func scopesEqual(a []string, b []string) bool {
	as, bs := scopeSet(a), scopeSet(b)
	if len(as) != len(bs) {
		return false
	}
	for t := range as {
		if !bs[t] {
			return false
		}
	}
	return true
}

func scopeSet(scope []string) map[string]bool {
	set := make(map[string]bool, len(scope))
	for _, t := range scope {
		set[t] = true
	}
	return set
}

// joinScope renders a scope for messages, preserving the order given by the
// caller. Order is never significant for matching.
func joinScope(scope []string) string {
	return strings.Join(scope, ",")
}

func ptrEqual[T comparable](a *T, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func recurrenceEqual(a *types.Recurrence, b *types.Recurrence) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
