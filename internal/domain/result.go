package domain

import (
	"time"

	"github.com/google/uuid"
)

// Telemetry summarises how an episode went.
type Telemetry struct {
	// Attempts counts provider calls made for tasks: the primary call plus backfills.
	Attempts          int           `json:"attempts"`
	Backfills         int           `json:"backfills"`
	ProviderFailures  int           `json:"provider_failures"`
	StructuralDropped int           `json:"structural_dropped"`
	IssuesFound       int           `json:"issues_found"`
	AutoFixed         int           `json:"auto_fixed"`
	UnresolvedIssues  []AgentIssue  `json:"unresolved_issues,omitempty"`
	AgentFailures     []string      `json:"agent_failures,omitempty"`
	BreakerOpen       bool          `json:"breaker_open"`
	Requested         int           `json:"requested"`
	Delivered         int           `json:"delivered"`
	Duration          time.Duration `json:"duration"`
}

// Short reports whether fewer tasks were delivered than requested.
func (t Telemetry) Short() bool {
	return t.Delivered < t.Requested
}

// Result is the assembled output of one generation episode.
type Result struct {
	ID         uuid.UUID  `json:"id"`
	RequestID  uuid.UUID  `json:"request_id"`
	AccountID  uuid.UUID  `json:"account_id"`
	Subject    Subject    `json:"subject"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
	Tasks      TaskList   `json:"tasks"`
	Telemetry  Telemetry  `json:"telemetry"`
	CreatedAt  time.Time  `json:"created_at"`
}
