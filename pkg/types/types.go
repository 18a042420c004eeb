package types

// Downtime is the wire representation of a Datadog v1 monitor downtime.
// Start and End are epoch seconds; a nil Start means the downtime begins
// immediately, a nil End means it runs indefinitely.
type Downtime struct {
	ID         int64       `json:"id,omitempty"`
	Scope      []string    `json:"scope,omitempty"`
	Start      *int64      `json:"start,omitempty"`
	End        *int64      `json:"end,omitempty"`
	Message    *string     `json:"message,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
	Active     bool        `json:"active,omitempty"`
	// Canceled is the cancellation timestamp, 0 if the downtime is not canceled.
	Canceled int64 `json:"canceled,omitempty"`
	Disabled bool  `json:"disabled,omitempty"`
}

// Recurrence describes the repeat cadence of a downtime, e.g. every 2 days.
type Recurrence struct {
	Type             string   `json:"type,omitempty"`
	Period           int      `json:"period,omitempty"`
	WeekDays         []string `json:"week_days,omitempty"`
	UntilDate        *int64   `json:"until_date,omitempty"`
	UntilOccurrences *int     `json:"until_occurrences,omitempty"`
}
