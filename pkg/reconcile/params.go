package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vshn/datadog-downtime/pkg/types"
)

type State string

const (
	StatePresent State = "present"
	StateUpdated State = "updated"
	StateAbsent  State = "absent"
)

func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateUpdated, StateAbsent:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown state %q, must be one of present, updated, absent", s)
}

// Params is the desired state of a single reconcile invocation. It is built
// once at the CLI boundary, validated eagerly and never persisted.
type Params struct {
	State State
	Scope []string

	Start      *int64
	End        *int64
	Message    *string
	Recurrence *types.Recurrence

	// ActiveOnly restricts matching to downtimes that are currently active.
	ActiveOnly bool

	// RequireMatch makes an empty match set fatal for all states, including
	// present. This reproduces the historical behavior under which present
	// could never create the first downtime for a scope. When unset, present
	// falls through to creating a new downtime instead.
	RequireMatch bool
}

func (p *Params) Validate() error {
	if len(p.Scope) == 0 {
		return errors.New("scope is required")
	}
	if _, err := ParseState(string(p.State)); err != nil {
		return err
	}
	return nil
}

// ParseRecurrence decodes the JSON recurrence representation accepted at the
// CLI boundary. An empty string means no recurrence.
func ParseRecurrence(s string) (*types.Recurrence, error) {
	if s == "" {
		return nil, nil
	}
	recurrence := types.Recurrence{}
	if err := json.Unmarshal([]byte(s), &recurrence); err != nil {
		return nil, fmt.Errorf("invalid recurrence: %w", err)
	}
	return &recurrence, nil
}
