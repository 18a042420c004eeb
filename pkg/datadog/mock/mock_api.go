package mock

import (
	"context"
	"slices"

	"github.com/vshn/datadog-downtime/pkg/datadog"
	"github.com/vshn/datadog-downtime/pkg/types"
)

// MockDowntimeAPI is an in-memory stand-in for the Datadog client. FailOn
// makes the named call ("list", "create", "update", "cancel") return an API
// error payload.
type MockDowntimeAPI struct {
	Downtimes []types.Downtime
	FailOn    string

	Calls       []string
	LastCall    string
	Created     []types.Downtime
	UpdatedIDs  []int64
	LastUpdate  types.Downtime
	CanceledIDs []int64

	nextID int64
}

func (m *MockDowntimeAPI) ListDowntimes(ctx context.Context) ([]types.Downtime, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.Downtimes), nil
}

func (m *MockDowntimeAPI) CreateDowntime(ctx context.Context, d types.Downtime) (*types.Downtime, error) {
	if err := m.record("create"); err != nil {
		return nil, err
	}
	m.nextID++
	d.ID = m.nextID
	m.Created = append(m.Created, d)
	m.Downtimes = append(m.Downtimes, d)
	return &d, nil
}

func (m *MockDowntimeAPI) UpdateDowntime(ctx context.Context, id int64, d types.Downtime) (*types.Downtime, error) {
	if err := m.record("update"); err != nil {
		return nil, err
	}
	m.UpdatedIDs = append(m.UpdatedIDs, id)
	m.LastUpdate = d
	for i := range m.Downtimes {
		if m.Downtimes[i].ID != id {
			continue
		}
		if d.Start != nil {
			m.Downtimes[i].Start = d.Start
		}
		if d.End != nil {
			m.Downtimes[i].End = d.End
		}
		if d.Message != nil {
			m.Downtimes[i].Message = d.Message
		}
		if d.Recurrence != nil {
			m.Downtimes[i].Recurrence = d.Recurrence
		}
		updated := m.Downtimes[i]
		return &updated, nil
	}
	d.ID = id
	return &d, nil
}

func (m *MockDowntimeAPI) CancelDowntime(ctx context.Context, id int64) error {
	if err := m.record("cancel"); err != nil {
		return err
	}
	m.CanceledIDs = append(m.CanceledIDs, id)
	for i := range m.Downtimes {
		if m.Downtimes[i].ID == id {
			m.Downtimes[i].Canceled = 1
		}
	}
	return nil
}

func (m *MockDowntimeAPI) record(call string) error {
	m.LastCall = call
	m.Calls = append(m.Calls, call)
	if m.FailOn == call {
		return &datadog.APIError{StatusCode: 400, Errors: []string{"mock error"}}
	}
	return nil
}
