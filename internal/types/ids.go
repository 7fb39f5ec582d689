package types

import "github.com/google/uuid"

// NewTaskID generates a UUIDv7 task identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewTaskID() TaskID {
	return TaskID(uuid.Must(uuid.NewV7()).String())
}

// NewSectionID generates a UUIDv7 section identifier.
func NewSectionID() SectionID {
	return SectionID(uuid.Must(uuid.NewV7()).String())
}

// NewProjectID generates a UUIDv7 project identifier.
func NewProjectID() ProjectID {
	return ProjectID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewInstanceID generates a UUIDv7 runtime instance identifier.
// Generated once per process start; never persisted beyond the lease row.
func NewInstanceID() InstanceID {
	return InstanceID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseTaskID validates and converts a string to TaskID.
func ParseTaskID(s string) (TaskID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return TaskID(s), nil
}
