package types

// EventType classifies a committed domain mutation.
type EventType string

// Event types raised by the host application and by the rule executor.
const (
	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskDeleted    EventType = "task.deleted"
	EventSectionCreated EventType = "section.created"
	EventSectionUpdated EventType = "section.updated"
)

// Delta captures the mutated fields of an event. Nil fields are unchanged.
// An event carries two deltas: Changes holds the new values,
// PreviousValues holds what those same fields were before the mutation.
// A multi-field update is one event, not one per field.
type Delta struct {
	SectionID *SectionID `json:"section_id,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	Name      *string    `json:"name,omitempty"`
}

// DomainEvent is an already-applied mutation notification. The host calls
// the engine's subscriber once per committed mutation; the executor
// constructs further events for mutations its own actions apply.
//
// Depth is the cascade generation counter: 0 for host-originated events,
// incremented for each generation of executor-raised follow-up events.
// Events at MaxCascadeDepth or beyond are never constructed.
type DomainEvent struct {
	Type           EventType
	TaskID         TaskID    // set for task.* events
	SectionID      SectionID // set for section.* events
	ProjectID      ProjectID
	Task           *Task // post-mutation snapshot for task.* events
	Changes        Delta
	PreviousValues Delta
	Depth          int
}
