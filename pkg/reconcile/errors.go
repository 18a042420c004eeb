package reconcile

import (
	"fmt"
	"strings"
)

// NoMatchError reports that no downtime satisfied the scope filter.
type NoMatchError struct {
	Scope []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no downtime matching scope '%s' found", strings.Join(e.Scope, ","))
}
