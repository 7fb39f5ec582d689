package rules

import (
	"time"

	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Filter evaluation.
 *
 * Filters are AND-combined predicates over a task, evaluated after a
 * trigger matches. Function-based dispatch over the closed FilterType
 * enum; an unknown filter type never matches, so a rule imported with a
 * filter this version does not understand fails closed instead of firing
 * on everything.
 *
 * Due-date comparisons measure whole days between now and the due date,
 * signed (negative when overdue), in calendar days or working days
 * (Mon-Fri). Age filters measure how long ago a timestamp occurred.
 */

// MatchFilters reports whether the task passes every filter.
// An empty filter list matches everything.
func MatchFilters(filters []Filter, task *types.Task, now time.Time) bool {
	for _, f := range filters {
		if !matchFilter(f, task, now) {
			return false
		}
	}
	return true
}

func matchFilter(f Filter, task *types.Task, now time.Time) bool {
	switch f.Type {
	case FilterInSection:
		return task.SectionID == f.SectionID
	case FilterHasDueDate:
		return task.DueDate != nil
	case FilterNoDueDate:
		return task.DueDate == nil
	case FilterDueDate:
		return matchDueDate(f, task, now)
	case FilterAge:
		return matchAge(f, task, now)
	default:
		return false
	}
}

func matchDueDate(f Filter, task *types.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}

	var diff int
	switch f.Unit {
	case UnitWorkingDays:
		diff = workingDaysBetween(now, *task.DueDate)
	default:
		diff = calendarDaysBetween(now, *task.DueDate)
	}

	switch f.Comparison {
	case CompareLessThan:
		return diff < f.Days
	case CompareMoreThan:
		return diff > f.Days
	case CompareExactly:
		return diff == f.Days
	case CompareBetween:
		return diff >= f.Days && diff <= f.DaysUpper
	default:
		return false
	}
}

func matchAge(f Filter, task *types.Task, now time.Time) bool {
	threshold := time.Duration(f.MoreThanDays) * 24 * time.Hour

	switch f.AgeField {
	case AgeCreated:
		return now.Sub(task.CreatedAt) > threshold
	case AgeCompleted:
		return task.CompletedAt != nil && now.Sub(*task.CompletedAt) > threshold
	case AgeLastUpdated, AgeNotModified:
		// Same measurement, two reading directions in the authoring UI.
		return now.Sub(task.UpdatedAt) > threshold
	case AgeOverdue:
		return task.DueDate != nil && now.Sub(*task.DueDate) > threshold
	case AgeInSection:
		return now.Sub(task.EnteredSectionAt) > threshold
	default:
		return false
	}
}

// calendarDaysBetween counts whole calendar days from a to b, comparing
// dates rather than 24-hour spans so "due tomorrow" is 1 regardless of
// the time of day. Negative when b is before a.
func calendarDaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// workingDaysBetween counts Mon-Fri days from a to b exclusive of a's
// date, signed like calendarDaysBetween.
func workingDaysBetween(a, b time.Time) int {
	days := calendarDaysBetween(a, b)
	if days == 0 {
		return 0
	}

	step := 1
	if days < 0 {
		step = -1
	}

	count := 0
	d := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i != days; i += step {
		d = d.AddDate(0, 0, step)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count += step
		}
	}
	return count
}
