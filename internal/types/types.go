// Package types provides domain models shared across Cardpilot components.
//
// Zero-dependency design: types.go, events.go, cron.go, and errors.go use
// only the standard library so host applications can embed the engine without
// pulling in storage or scheduling dependencies. ID utilities in ids.go
// import uuid but are isolated for selective inclusion.
package types

import "time"

// TaskID represents a UUIDv7 task identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type TaskID string

// SectionID represents a UUIDv7 section identifier.
type SectionID string

// ProjectID represents a UUIDv7 project identifier.
type ProjectID string

// RuleID represents a UUIDv7 automation rule identifier.
type RuleID string

// InstanceID identifies one runtime instance of the engine. Several
// instances may share the same persisted state; leader election decides
// which one runs scheduler ticks.
type InstanceID string

// Task is a card on a board. Tasks with a non-nil ParentID are subtasks;
// automations never fire on subtasks.
type Task struct {
	ID               TaskID     `json:"id"`
	ProjectID        ProjectID  `json:"project_id"`
	SectionID        SectionID  `json:"section_id"`
	ParentID         *TaskID    `json:"parent_id,omitempty"`
	Title            string     `json:"title"`
	Completed        bool       `json:"completed"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Position         int        `json:"position"`
	EnteredSectionAt time.Time  `json:"entered_section_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Section is a column on a board.
type Section struct {
	ID        SectionID `json:"id"`
	ProjectID ProjectID `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resource limits enforced by the engine.
const (
	// MaxCascadeDepth bounds recursive event chains. A rule action may raise
	// events that trigger further rules; at depth 5 the chain is truncated
	// silently rather than erroring. This is a safety valve, not a failure.
	MaxCascadeDepth = 5

	// ExecutionLogLimit bounds each rule's execution log ring buffer.
	// 20 entries give enough history for debugging without unbounded growth.
	ExecutionLogLimit = 20

	// MaxAffectedNames caps entity names recorded per execution log entry.
	// The full matched count is always recorded; names are a sample.
	MaxAffectedNames = 5

	// UndoWindow is how long an undo snapshot stays redeemable.
	UndoWindow = 10 * time.Second

	// MinIntervalMinutes and MaxIntervalMinutes bound interval schedules
	// (5 minutes to 7 days).
	MinIntervalMinutes = 5
	MaxIntervalMinutes = 10080
)
