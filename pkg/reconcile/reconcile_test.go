package reconcile

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonglil/buflogr"
	"k8s.io/utils/ptr"

	"github.com/vshn/datadog-downtime/pkg/datadog"
	"github.com/vshn/datadog-downtime/pkg/datadog/mock"
	"github.com/vshn/datadog-downtime/pkg/types"
)

func setup(downtimes ...types.Downtime) (*mock.MockDowntimeAPI, Reconciler) {
	api := &mock.MockDowntimeAPI{Downtimes: downtimes}
	r := New(api, Config{Now: func() time.Time { return time.Unix(1000, 0) }})
	return api, r
}

func TestFindMatchingSupersetScope(t *testing.T) {
	api, _ := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a", "env:prod"}},
		types.Downtime{ID: 2, Scope: []string{"host:b"}},
	)

	matching, err := FindMatching(t.Context(), api, []string{"host:a"}, false)
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, int64(1), matching[0].ID)
}

func TestFindMatchingExcludesCanceled(t *testing.T) {
	api, _ := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a"}, Canceled: 1654321},
		types.Downtime{ID: 2, Scope: []string{"host:a"}},
	)

	matching, err := FindMatching(t.Context(), api, []string{"host:a"}, false)
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, int64(2), matching[0].ID)
}

func TestFindMatchingActiveOnly(t *testing.T) {
	api, _ := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a"}, Active: false},
		types.Downtime{ID: 2, Scope: []string{"host:a"}, Active: true},
	)

	matching, err := FindMatching(t.Context(), api, []string{"host:a"}, true)
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, int64(2), matching[0].ID)
}

func TestFindMatchingEmptyScopeMatchesAll(t *testing.T) {
	api, _ := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a"}},
		types.Downtime{ID: 2, Scope: []string{"host:b"}},
	)

	matching, err := FindMatching(t.Context(), api, nil, false)
	require.NoError(t, err)
	assert.Len(t, matching, 2)
}

func TestPresentCreatesWhenNothingMatches(t *testing.T) {
	api, r := setup()

	result, err := r.Reconcile(t.Context(), Params{
		State: StatePresent,
		Scope: []string{"host:a"},
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, []string{"list", "create"}, api.Calls)
	require.Len(t, api.Created, 1)
	assert.Equal(t, []string{"host:a"}, api.Created[0].Scope)
	require.NotNil(t, api.Created[0].Start)
	assert.Equal(t, int64(1000), *api.Created[0].Start)
	assert.Nil(t, api.Created[0].End)
}

func TestPresentNoOpOnExactMatch(t *testing.T) {
	api, r := setup(types.Downtime{
		ID:    7,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
	})

	result, err := r.Reconcile(t.Context(), Params{
		State: StatePresent,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
	})
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, []string{"list"}, api.Calls)
}

func TestPresentIsIdempotent(t *testing.T) {
	api, r := setup()
	params := Params{State: StatePresent, Scope: []string{"host:a"}}

	first, err := r.Reconcile(t.Context(), params)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := r.Reconcile(t.Context(), params)
	require.NoError(t, err)
	assert.False(t, second.Changed)

	assert.Equal(t, []string{"list", "create", "list"}, api.Calls)
	assert.Len(t, api.Created, 1)
}

func TestPresentDuplicateCheckRequiresScopeEquality(t *testing.T) {
	// superset scope matches the filter but is not a duplicate
	api, r := setup(types.Downtime{
		ID:    7,
		Scope: []string{"host:a", "env:prod"},
		Start: ptr.To(int64(100)),
	})

	result, err := r.Reconcile(t.Context(), Params{
		State: StatePresent,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Len(t, api.Created, 1)
}

func TestPresentDuplicateCheckComparesEndOnlyWhenSet(t *testing.T) {
	existing := types.Downtime{
		ID:    7,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
		End:   ptr.To(int64(500)),
	}

	_, r := setup(existing)
	result, err := r.Reconcile(t.Context(), Params{
		State: StatePresent,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
	})
	require.NoError(t, err)
	assert.False(t, result.Changed, "end is ignored when not requested")

	api, r := setup(existing)
	result, err = r.Reconcile(t.Context(), Params{
		State: StatePresent,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(100)),
		End:   ptr.To(int64(900)),
	})
	require.NoError(t, err)
	assert.True(t, result.Changed, "diverging end is not a duplicate")
	assert.Len(t, api.Created, 1)
}

func TestPresentMatchesMessageAndRecurrence(t *testing.T) {
	api, r := setup(types.Downtime{
		ID:         7,
		Scope:      []string{"host:a"},
		Start:      ptr.To(int64(100)),
		Message:    ptr.To("maintenance"),
		Recurrence: &types.Recurrence{Type: "days", Period: 2},
	})

	result, err := r.Reconcile(t.Context(), Params{
		State:      StatePresent,
		Scope:      []string{"host:a"},
		Start:      ptr.To(int64(100)),
		Message:    ptr.To("maintenance"),
		Recurrence: &types.Recurrence{Type: "days", Period: 2},
	})
	require.NoError(t, err)
	assert.False(t, result.Changed)

	result, err = r.Reconcile(t.Context(), Params{
		State:      StatePresent,
		Scope:      []string{"host:a"},
		Start:      ptr.To(int64(100)),
		Message:    ptr.To("other text"),
		Recurrence: &types.Recurrence{Type: "days", Period: 2},
	})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Len(t, api.Created, 1)
}

func TestPresentRequireMatchFailsOnEmpty(t *testing.T) {
	api, r := setup()

	_, err := r.Reconcile(t.Context(), Params{
		State:        StatePresent,
		Scope:        []string{"host:a"},
		RequireMatch: true,
	})

	noMatch := &NoMatchError{}
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, []string{"host:a"}, noMatch.Scope)
	assert.Equal(t, []string{"list"}, api.Calls)
}

func TestUpdateSkipsRunningDowntimeWhenStartGiven(t *testing.T) {
	// start 10 is in the past relative to the fixed clock at 1000
	api, r := setup(types.Downtime{
		ID:    7,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(10)),
	})

	result, err := r.Reconcile(t.Context(), Params{
		State: StateUpdated,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(9999)),
		End:   ptr.To(int64(5000)),
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, api.UpdatedIDs)
}

func TestUpdateAppliesWhenStartOmitted(t *testing.T) {
	api, r := setup(types.Downtime{
		ID:    7,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(10)),
	})

	result, err := r.Reconcile(t.Context(), Params{
		State: StateUpdated,
		Scope: []string{"host:a"},
		End:   ptr.To(int64(5000)),
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []int64{7}, api.UpdatedIDs)
	assert.Nil(t, api.LastUpdate.Start)
	require.NotNil(t, api.LastUpdate.End)
	assert.Equal(t, int64(5000), *api.LastUpdate.End)
}

func TestUpdateMovesFutureDowntime(t *testing.T) {
	api, r := setup(types.Downtime{
		ID:    7,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(2000)),
	})

	result, err := r.Reconcile(t.Context(), Params{
		State: StateUpdated,
		Scope: []string{"host:a"},
		Start: ptr.To(int64(3000)),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []int64{7}, api.UpdatedIDs)
}

func TestUpdateFailsFast(t *testing.T) {
	api, r := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a"}, Start: ptr.To(int64(2000))},
		types.Downtime{ID: 2, Scope: []string{"host:a"}, Start: ptr.To(int64(2000))},
	)
	api.FailOn = "update"

	_, err := r.Reconcile(t.Context(), Params{
		State: StateUpdated,
		Scope: []string{"host:a"},
		End:   ptr.To(int64(5000)),
	})

	apiErr := &datadog.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"list", "update"}, api.Calls, "remaining downtimes are not attempted")
}

func TestAbsentCancelsAllMatching(t *testing.T) {
	api, r := setup(
		types.Downtime{ID: 1, Scope: []string{"host:a"}, Active: true},
		types.Downtime{ID: 2, Scope: []string{"host:a"}, Active: false},
	)

	result, err := r.Reconcile(t.Context(), Params{
		State: StateAbsent,
		Scope: []string{"host:a"},
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, 2, result.Canceled)
	assert.ElementsMatch(t, []int64{1, 2}, api.CanceledIDs)
}

func TestAbsentFailsWhenNothingMatches(t *testing.T) {
	_, r := setup(types.Downtime{ID: 1, Scope: []string{"host:b"}})

	_, err := r.Reconcile(t.Context(), Params{
		State: StateAbsent,
		Scope: []string{"host:a"},
	})

	noMatch := &NoMatchError{}
	require.ErrorAs(t, err, &noMatch)
}

func TestUpdatedFailsWhenNothingMatches(t *testing.T) {
	_, r := setup()

	_, err := r.Reconcile(t.Context(), Params{
		State: StateUpdated,
		Scope: []string{"host:a"},
	})

	noMatch := &NoMatchError{}
	require.ErrorAs(t, err, &noMatch)
}

func TestListErrorAbortsInvocation(t *testing.T) {
	api, r := setup()
	api.FailOn = "list"

	_, err := r.Reconcile(t.Context(), Params{
		State: StateAbsent,
		Scope: []string{"host:a"},
	})

	apiErr := &datadog.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"list"}, api.Calls, "no further calls after a failed list")
}

func TestReconcileValidatesParams(t *testing.T) {
	api, r := setup()

	_, err := r.Reconcile(t.Context(), Params{State: StatePresent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope is required")
	assert.Empty(t, api.Calls, "validation happens before any remote call")
}

func TestReconcileLogsCreation(t *testing.T) {
	var buf bytes.Buffer
	logger := buflogr.NewWithBuffer(&buf)

	api := &mock.MockDowntimeAPI{}
	r := New(api, Config{Logger: &logger, Now: func() time.Time { return time.Unix(1000, 0) }})

	_, err := r.Reconcile(t.Context(), Params{State: StatePresent, Scope: []string{"host:a"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Downtime created")
}

func TestScopesEqualIgnoresOrderAndDuplicates(t *testing.T) {
	assert.True(t, scopesEqual([]string{"a", "b"}, []string{"b", "a"}))
	assert.True(t, scopesEqual([]string{"a", "a", "b"}, []string{"b", "a"}))
	assert.False(t, scopesEqual([]string{"a", "b"}, []string{"a"}))
	assert.False(t, scopesEqual([]string{"a"}, []string{"a", "b"}))
}

func TestNoMatchErrorMessage(t *testing.T) {
	err := &NoMatchError{Scope: []string{"host:a", "myapp"}}
	assert.Equal(t, "no downtime matching scope 'host:a,myapp' found", err.Error())
}
