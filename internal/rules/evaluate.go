package rules

import (
	"time"

	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Event evaluation orchestration.
 *
 * Pure function: domain event + indexed rule set -> ordered candidates.
 * Only task.updated events participate in section-change and
 * completion-change matching; creation and deletion events do not drive
 * event-triggered rules. That restriction mirrors the product behavior
 * deliberately: a card created by an automation must not re-trigger
 * "moved into" rules for its initial section.
 *
 * Subtask exclusion: events whose task has a non-nil parent never match,
 * regardless of rule configuration. Automations fire on top-level cards
 * only.
 *
 * Filters run after trigger match and before the candidate is emitted;
 * any failing filter excludes the rule for this event.
 */

// Candidate pairs a matched rule with the action it wants applied and the
// entity it targets. The executor interprets candidates in order.
type Candidate struct {
	Rule   *Rule
	Action Action
	Task   *types.Task
	// TriggeringSection is the section the event referenced: the new
	// section for moved-into, the old section for moved-out-of. Actions
	// with UseTriggeringSection resolve against it.
	TriggeringSection types.SectionID
}

// EvaluateEvent returns the candidate actions for one domain event.
// Pure: no repository access, no clock reads beyond the supplied now.
func EvaluateEvent(ev types.DomainEvent, ix *Index, now time.Time) []Candidate {
	if ev.Type != types.EventTaskUpdated {
		return nil
	}
	task := ev.Task
	if task == nil || task.ParentID != nil {
		return nil
	}

	var out []Candidate
	out = append(out, matchSectionChange(ev, ix, task, now)...)
	out = append(out, matchCompletionChange(ev, ix, task, now)...)
	return out
}

// matchSectionChange handles card_moved_into_section and
// card_moved_out_of_section. A change only counts when the new section
// differs from the previous one.
func matchSectionChange(ev types.DomainEvent, ix *Index, task *types.Task, now time.Time) []Candidate {
	newSection := ev.Changes.SectionID
	oldSection := ev.PreviousValues.SectionID
	if newSection == nil || oldSection == nil || *newSection == *oldSection {
		return nil
	}

	var out []Candidate
	for _, r := range ix.ByTriggerType(TriggerCardMovedInto) {
		if r.Trigger.SectionID == nil || *r.Trigger.SectionID != *newSection {
			continue
		}
		if !MatchFilters(r.Filters, task, now) {
			continue
		}
		out = append(out, Candidate{Rule: r, Action: r.Action, Task: task, TriggeringSection: *newSection})
	}
	for _, r := range ix.ByTriggerType(TriggerCardMovedOutOf) {
		if r.Trigger.SectionID == nil || *r.Trigger.SectionID != *oldSection {
			continue
		}
		if !MatchFilters(r.Filters, task, now) {
			continue
		}
		out = append(out, Candidate{Rule: r, Action: r.Action, Task: task, TriggeringSection: *oldSection})
	}
	return out
}

// matchCompletionChange handles card_marked_complete (false -> true) and
// card_marked_incomplete (true -> false).
func matchCompletionChange(ev types.DomainEvent, ix *Index, task *types.Task, now time.Time) []Candidate {
	newDone := ev.Changes.Completed
	oldDone := ev.PreviousValues.Completed
	if newDone == nil || oldDone == nil || *newDone == *oldDone {
		return nil
	}

	triggerType := TriggerCardMarkedIncomplete
	if *newDone {
		triggerType = TriggerCardMarkedComplete
	}

	var out []Candidate
	for _, r := range ix.ByTriggerType(triggerType) {
		if !MatchFilters(r.Filters, task, now) {
			continue
		}
		out = append(out, Candidate{Rule: r, Action: r.Action, Task: task, TriggeringSection: task.SectionID})
	}
	return out
}
