// Package rules defines the automation rule model and pure event
// evaluation. A rule owns one trigger, zero or more AND-combined filters,
// and exactly one action; evaluation turns a domain event plus a rule set
// into an ordered list of candidate actions without side effects.
package rules

import (
	"time"

	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Domain types for rule evaluation.
 *
 * Trigger, Filter, and Action are tagged variants: a Type discriminant
 * plus the payload fields that variant uses. Closed enums with exhaustive
 * switches in the evaluator keep the variant space compiler-checked.
 * These types are wire-format agnostic; the store serializes them as a
 * JSON document alongside indexed columns.
 */

// TriggerType discriminates the trigger variants.
type TriggerType string

// Event trigger types react to committed domain mutations.
const (
	TriggerCardMovedInto        TriggerType = "card_moved_into_section"
	TriggerCardMovedOutOf       TriggerType = "card_moved_out_of_section"
	TriggerCardMarkedComplete   TriggerType = "card_marked_complete"
	TriggerCardMarkedIncomplete TriggerType = "card_marked_incomplete"
	TriggerCardCreatedInSection TriggerType = "card_created_in_section"
	TriggerSectionCreated       TriggerType = "section_created"
	TriggerSectionRenamed       TriggerType = "section_renamed"
)

// Scheduled trigger types fire on wall-clock schedules.
const (
	TriggerScheduleInterval    TriggerType = "schedule_interval"
	TriggerScheduleCron        TriggerType = "schedule_cron"
	TriggerScheduleDueRelative TriggerType = "schedule_due_date_relative"
	TriggerScheduleOneTime     TriggerType = "schedule_one_time"
)

// knownTriggers is the closed set; anything else is an import from a
// newer version and marks the rule broken rather than failing the batch.
var knownTriggers = map[TriggerType]bool{
	TriggerCardMovedInto:        true,
	TriggerCardMovedOutOf:       true,
	TriggerCardMarkedComplete:   true,
	TriggerCardMarkedIncomplete: true,
	TriggerCardCreatedInSection: true,
	TriggerSectionCreated:       true,
	TriggerSectionRenamed:       true,
	TriggerScheduleInterval:     true,
	TriggerScheduleCron:         true,
	TriggerScheduleDueRelative:  true,
	TriggerScheduleOneTime:      true,
}

// Known reports whether t is a trigger type this engine version supports.
func (t TriggerType) Known() bool {
	return knownTriggers[t]
}

// Scheduled reports whether t fires on wall-clock time rather than events.
func (t TriggerType) Scheduled() bool {
	switch t {
	case TriggerScheduleInterval, TriggerScheduleCron, TriggerScheduleDueRelative, TriggerScheduleOneTime:
		return true
	}
	return false
}

// CatchUpPolicy governs scheduled rules after missed ticks. Either way at
// most one execution is produced; the policy decides how the missed
// window is logged.
type CatchUpPolicy string

const (
	CatchUpLatest CatchUpPolicy = "catch_up_latest"
	SkipMissed    CatchUpPolicy = "skip_missed"
)

// Schedule is the payload of a scheduled trigger, variant by trigger type.
// LastEvaluatedAt is nil until the scheduler's first tick touches the rule.
type Schedule struct {
	// IntervalMinutes is set for schedule_interval (whole minutes, 5..10080).
	IntervalMinutes int `json:"interval_minutes,omitempty"`

	// Cron is set for schedule_cron.
	Cron *types.CronSchedule `json:"cron,omitempty"`

	// DueOffsetMinutes is set for schedule_due_date_relative: a signed
	// offset from each task's due date, negative meaning before.
	// DueOffsetUnit is presentation only ("minutes", "hours", "days").
	DueOffsetMinutes int    `json:"due_offset_minutes,omitempty"`
	DueOffsetUnit    string `json:"due_offset_unit,omitempty"`

	// FireAt is set for schedule_one_time.
	FireAt *time.Time `json:"fire_at,omitempty"`

	LastEvaluatedAt *time.Time    `json:"last_evaluated_at"`
	CatchUp         CatchUpPolicy `json:"catch_up_policy,omitempty"`
}

// Trigger is a tagged variant. Event triggers may carry a section
// reference; scheduled triggers carry a Schedule payload.
type Trigger struct {
	Type      TriggerType      `json:"type"`
	SectionID *types.SectionID `json:"section_id,omitempty"`
	Schedule  *Schedule        `json:"schedule,omitempty"`
}

// FilterType discriminates the filter variants.
type FilterType string

const (
	FilterInSection  FilterType = "in_section"
	FilterHasDueDate FilterType = "has_due_date"
	FilterNoDueDate  FilterType = "no_due_date"
	FilterDueDate    FilterType = "due_date"
	FilterAge        FilterType = "age"
)

// Comparison modes for due-date filters.
type Comparison string

const (
	CompareLessThan Comparison = "less_than"
	CompareMoreThan Comparison = "more_than"
	CompareExactly  Comparison = "exactly"
	CompareBetween  Comparison = "between"
)

// DayUnit selects calendar days or working days (Mon-Fri) for due-date
// comparisons.
type DayUnit string

const (
	UnitDays        DayUnit = "days"
	UnitWorkingDays DayUnit = "working_days"
)

// AgeField selects which timestamp an age filter measures against.
type AgeField string

const (
	AgeCreated      AgeField = "created"
	AgeCompleted    AgeField = "completed"
	AgeLastUpdated  AgeField = "last_updated"
	AgeNotModified  AgeField = "not_modified"
	AgeOverdue      AgeField = "overdue"
	AgeInSection    AgeField = "in_section"
)

// Filter is a tagged variant. Filters are AND-combined; an empty filter
// list matches everything.
type Filter struct {
	Type FilterType `json:"type"`

	// SectionID is set for in_section.
	SectionID types.SectionID `json:"section_id,omitempty"`

	// Due-date comparison payload (due_date).
	Comparison Comparison `json:"comparison,omitempty"`
	Days       int        `json:"days,omitempty"`
	DaysUpper  int        `json:"days_upper,omitempty"` // between upper bound
	Unit       DayUnit    `json:"unit,omitempty"`

	// Age payload (age): matches when the selected timestamp is more than
	// MoreThanDays days in the past.
	AgeField     AgeField `json:"age_field,omitempty"`
	MoreThanDays int      `json:"more_than_days,omitempty"`
}

// ActionType discriminates the action variants.
type ActionType string

const (
	ActionMoveToTop      ActionType = "move_to_top_of_section"
	ActionMoveToBottom   ActionType = "move_to_bottom_of_section"
	ActionMarkComplete   ActionType = "mark_complete"
	ActionMarkIncomplete ActionType = "mark_incomplete"
	ActionSetDueDate     ActionType = "set_due_date"
	ActionRemoveDueDate  ActionType = "remove_due_date"
	ActionCreateCard     ActionType = "create_card"
)

// Action is a side-effect description, not an effect itself; the executor
// interprets it against the repositories.
type Action struct {
	Type ActionType `json:"type"`

	// SectionID targets move and create_card actions.
	// UseTriggeringSection substitutes the section the triggering event
	// referenced instead of a fixed section.
	SectionID            types.SectionID `json:"section_id,omitempty"`
	UseTriggeringSection bool            `json:"use_triggering_section,omitempty"`

	// Due-date payload (set_due_date): either an absolute instant or a
	// relative "now plus N days" option.
	DueAt     *time.Time `json:"due_at,omitempty"`
	DueInDays *int       `json:"due_in_days,omitempty"`

	// TitleTemplate for create_card; "{title}" expands to the triggering
	// task's title.
	TitleTemplate string `json:"title_template,omitempty"`
}

// BrokenReason explains why a rule was taken out of evaluation without
// being deleted. Independent from Enabled so a broken rule can be
// surfaced in UI.
type BrokenReason string

const (
	BrokenNone               BrokenReason = ""
	BrokenUnsupportedTrigger BrokenReason = "unsupported_trigger"
	BrokenSectionDeleted     BrokenReason = "section_deleted"
)

// ExecutionType tags a log entry with how the execution came about.
type ExecutionType string

const (
	ExecScheduled ExecutionType = "scheduled"
	ExecCatchUp   ExecutionType = "catch-up"
	ExecManual    ExecutionType = "manual"
	ExecSkipped   ExecutionType = "skipped"
)

// LogEntry is an immutable record appended on every action application.
type LogEntry struct {
	At            time.Time     `json:"at"`
	Trigger       string        `json:"trigger"`
	Action        string        `json:"action"`
	MatchedCount  int           `json:"matched_count"`
	AffectedNames []string      `json:"affected_names,omitempty"`
	Type          ExecutionType `json:"type"`
}

// Rule owns one trigger, zero or more filters, and exactly one action,
// scoped to a project.
type Rule struct {
	ID             types.RuleID    `json:"id"`
	ProjectID      types.ProjectID `json:"project_id"`
	Name           string          `json:"name"`
	Enabled        bool            `json:"enabled"`
	BrokenReason   BrokenReason    `json:"broken_reason,omitempty"`
	Trigger        Trigger         `json:"trigger"`
	Filters        []Filter        `json:"filters,omitempty"`
	Action         Action          `json:"action"`
	ExecutionCount int             `json:"execution_count"`
	LastExecutedAt *time.Time      `json:"last_executed_at,omitempty"`
	ExecutionLog   []LogEntry      `json:"execution_log,omitempty"`
	DisplayOrder   int             `json:"display_order"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Runnable reports whether the rule participates in evaluation. Disabled
// and broken rules are excluded from both event-triggered and scheduled
// evaluation.
func (r *Rule) Runnable() bool {
	return r.Enabled && r.BrokenReason == BrokenNone
}

// AppendLog appends an execution log entry, trimming the ring buffer to
// the newest ExecutionLogLimit entries.
func (r *Rule) AppendLog(e LogEntry) {
	r.ExecutionLog = append(r.ExecutionLog, e)
	if n := len(r.ExecutionLog); n > types.ExecutionLogLimit {
		r.ExecutionLog = r.ExecutionLog[n-types.ExecutionLogLimit:]
	}
}

// RecordExecution bumps the execution counter and timestamp and appends
// the log entry. Called by the executor after each action application.
func (r *Rule) RecordExecution(now time.Time, e LogEntry) {
	r.ExecutionCount++
	r.LastExecutedAt = &now
	r.AppendLog(e)
}
