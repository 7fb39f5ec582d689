package types

import "errors"

// Sentinel errors for Cardpilot operations.
var (
	// ErrTaskNotFound indicates a task ID could not be resolved.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSectionNotFound indicates a section ID could not be resolved.
	ErrSectionNotFound = errors.New("section not found")

	// ErrRuleNotFound indicates a rule ID could not be resolved.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrNothingToUndo indicates no redeemable undo snapshot exists, either
	// because none was captured, the undo window elapsed, or a newer
	// execution evicted it. Hosts surface this as an informational signal,
	// never as a failure.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrIntervalOutOfRange indicates an interval schedule outside the
	// 5-minute to 7-day domain.
	ErrIntervalOutOfRange = errors.New("interval must be between 5 and 10080 minutes")

	// ErrUnsupportedTrigger indicates a trigger type the engine does not
	// recognize, typically after importing rules from a newer version.
	// Import marks the rule broken instead of rejecting the batch.
	ErrUnsupportedTrigger = errors.New("unsupported trigger type")
)
