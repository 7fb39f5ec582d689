// Package schedule decides whether scheduled triggers fire at a given
// instant. Pure functions over trigger payloads and the clock; the
// scheduler owns all persistence and side effects.
package schedule

import (
	"fmt"
	"time"

	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Schedule evaluation.
 *
 * ShouldFire answers, per scheduled trigger: did it (or should it) fire
 * in the window (lastEvaluatedAt, now], how many windows were missed, and
 * what lastEvaluatedAt becomes after this tick.
 *
 * Catch-up collapse: when more than one interval elapsed while no tick
 * ran, the trigger fires exactly once, never once per missed window.
 * catch_up_latest tags that execution "catch-up"; skip_missed tags it
 * "scheduled" and reports the skipped windows so the scheduler can log
 * them. Both policies produce at most one execution.
 *
 * A nil lastEvaluatedAt means the scheduler has never touched the rule.
 * Recurring triggers do not fire on their first tick; they start their
 * window at now. One-time triggers are the exception: a fire instant in
 * the past fires immediately on the first tick after creation.
 */

// Result is the outcome of evaluating one scheduled trigger.
type Result struct {
	Fire bool

	// Missed counts whole windows that elapsed beyond the one being
	// fired. Zero in steady state.
	Missed int

	// Type tags the resulting execution log entries.
	Type rules.ExecutionType

	// NextEvaluatedAt is the bookkeeping value to persist for
	// lastEvaluatedAt after this tick.
	NextEvaluatedAt time.Time

	// DisableRule is set when a one-time trigger fires; the owning rule
	// is disabled so it never fires again.
	DisableRule bool
}

// ShouldFire evaluates a scheduled trigger against now.
func ShouldFire(t rules.Trigger, now time.Time) (Result, error) {
	if t.Schedule == nil {
		return Result{}, fmt.Errorf("trigger %s has no schedule payload", t.Type)
	}
	s := t.Schedule

	switch t.Type {
	case rules.TriggerScheduleInterval:
		return evalInterval(s, now)
	case rules.TriggerScheduleCron:
		return evalCron(s, now)
	case rules.TriggerScheduleDueRelative:
		// Fires per task, not per trigger: the scheduler narrows the task
		// set with DueWindowContains each tick. The trigger itself always
		// "fires" so matching happens against the current task list.
		return Result{Fire: true, Type: rules.ExecScheduled, NextEvaluatedAt: now}, nil
	case rules.TriggerScheduleOneTime:
		return evalOneTime(s, now)
	default:
		return Result{}, fmt.Errorf("%w: %s", types.ErrUnsupportedTrigger, t.Type)
	}
}

func evalInterval(s *rules.Schedule, now time.Time) (Result, error) {
	if s.IntervalMinutes < types.MinIntervalMinutes || s.IntervalMinutes > types.MaxIntervalMinutes {
		return Result{}, types.ErrIntervalOutOfRange
	}
	if s.LastEvaluatedAt == nil {
		return Result{NextEvaluatedAt: now, Type: rules.ExecScheduled}, nil
	}

	interval := time.Duration(s.IntervalMinutes) * time.Minute
	elapsed := now.Sub(*s.LastEvaluatedAt)
	if elapsed < interval {
		return Result{NextEvaluatedAt: *s.LastEvaluatedAt, Type: rules.ExecScheduled}, nil
	}

	windows := int(elapsed / interval)
	res := Result{
		Fire:            true,
		Missed:          windows - 1,
		Type:            rules.ExecScheduled,
		NextEvaluatedAt: now,
	}
	if res.Missed > 0 && s.CatchUp != rules.SkipMissed {
		res.Type = rules.ExecCatchUp
	}
	return res, nil
}

func evalCron(s *rules.Schedule, now time.Time) (Result, error) {
	if s.Cron == nil {
		return Result{}, fmt.Errorf("cron trigger has no schedule")
	}
	if s.LastEvaluatedAt == nil {
		return Result{NextEvaluatedAt: now, Type: rules.ExecScheduled}, nil
	}

	recent, ok := mostRecentInstant(*s.Cron, now)
	if !ok || !recent.After(*s.LastEvaluatedAt) {
		return Result{NextEvaluatedAt: now, Type: rules.ExecScheduled}, nil
	}

	return Result{Fire: true, Type: rules.ExecScheduled, NextEvaluatedAt: now}, nil
}

func evalOneTime(s *rules.Schedule, now time.Time) (Result, error) {
	if s.FireAt == nil {
		return Result{}, fmt.Errorf("one-time trigger has no fire instant")
	}
	if now.Before(*s.FireAt) {
		return Result{NextEvaluatedAt: now, Type: rules.ExecScheduled}, nil
	}
	// Fires on the first tick where now >= fireAt, including instants that
	// were already past when the rule was created. The owning rule is
	// disabled afterwards, which is the "has fired" state.
	return Result{Fire: true, Type: rules.ExecScheduled, NextEvaluatedAt: now, DisableRule: true}, nil
}

// mostRecentInstant returns the latest instant matching the schedule that
// is <= now. Searches backwards day by day; a schedule with day sets that
// never match any day (impossible through the parser) reports ok=false
// after a year.
func mostRecentInstant(c types.CronSchedule, now time.Time) (time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i <= 366; i++ {
		if dayMatches(c, day) {
			at := time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, now.Location())
			if !at.After(now) {
				return at, true
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, false
}

// dayMatches applies cron day semantics: empty sets match every day; when
// both day-of-week and day-of-month are restricted, a day matching either
// set fires (vixie-cron union semantics).
func dayMatches(c types.CronSchedule, day time.Time) bool {
	dowMatch := len(c.DaysOfWeek) == 0 || containsInt(c.DaysOfWeek, int(day.Weekday()))
	domMatch := len(c.DaysOfMonth) == 0 || containsInt(c.DaysOfMonth, day.Day())

	if len(c.DaysOfWeek) > 0 && len(c.DaysOfMonth) > 0 {
		return containsInt(c.DaysOfWeek, int(day.Weekday())) || containsInt(c.DaysOfMonth, day.Day())
	}
	return dowMatch && domMatch
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// DueWindowContains reports whether a task's due-relative fire instant
// (due date plus the signed offset) falls inside (last, now]. The window
// shifts as due dates are edited, so this is re-evaluated against the
// current task every tick; lastEvaluatedAt is the gate that keeps one
// instant from firing twice.
func DueWindowContains(task *types.Task, offsetMinutes int, last *time.Time, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	at := task.DueDate.Add(time.Duration(offsetMinutes) * time.Minute)
	if at.After(now) {
		return false
	}
	if last == nil {
		// First tick ever: start the window at now rather than replaying
		// every historical due date.
		return false
	}
	return at.After(*last)
}
