// Package cron converts between 5-field cron expressions and the
// structured schedule the automation engine evaluates.
package cron

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cardpilot/cardpilot/internal/types"
)

/*
 * Cron expression parsing.
 *
 * Grammar per field: `*`, single integer, `a-b` range, comma list, and
 * `base/step` (including `*\/step`). The structured schedule has a single
 * hour and minute, so those two fields must resolve to exactly one value;
 * a wildcard or multi-value minute/hour is a parse error, not a silent
 * truncation.
 *
 * Deliberately rejected: the `L W # ?` extensions (non-portable, no
 * structured equivalent), any non-`*` month field (month filtering is
 * unsupported), and field counts other than 5. Six or seven fields get a
 * distinct error pointing at seconds/years variants so users pasting
 * Quartz expressions understand what happened.
 *
 * Errors are values: ParseError names the offending field so the host can
 * point at it in an editor. Parsing never panics.
 */

// Field names used in ParseError, in field order.
const (
	FieldMinute     = "minute"
	FieldHour       = "hour"
	FieldDayOfMonth = "day-of-month"
	FieldMonth      = "month"
	FieldDayOfWeek  = "day-of-week"
	FieldExpression = "expression"
)

// ParseError describes a malformed cron expression. Field identifies which
// of the five fields (or the expression as a whole) is at fault.
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cron %s: %s", e.Field, e.Message)
}

func parseErrorf(field, format string, args ...any) *ParseError {
	return &ParseError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// unsupportedChars are cron extensions with no structured-schedule
// equivalent. Checked per field so the error names the field.
var unsupportedChars = []string{"L", "W", "#", "?"}

// Parse converts a 5-field cron expression into a structured schedule.
func Parse(expr string) (types.CronSchedule, error) {
	var schedule types.CronSchedule

	fields := strings.Fields(expr)
	switch {
	case len(fields) == 0:
		return schedule, parseErrorf(FieldExpression, "expression is empty")
	case len(fields) < 5:
		return schedule, parseErrorf(FieldExpression, "expected 5 fields, got %d", len(fields))
	case len(fields) > 5:
		return schedule, parseErrorf(FieldExpression,
			"expected 5 fields, got %d (6- and 7-field expressions with seconds or years are not supported)", len(fields))
	}

	fieldNames := []string{FieldMinute, FieldHour, FieldDayOfMonth, FieldMonth, FieldDayOfWeek}
	for i, f := range fields {
		for _, c := range unsupportedChars {
			if strings.Contains(strings.ToUpper(f), c) {
				return schedule, parseErrorf(fieldNames[i], "unsupported character %q", c)
			}
		}
	}

	minutes, err := parseField(FieldMinute, fields[0], 0, 59)
	if err != nil {
		return schedule, err
	}
	if len(minutes) != 1 {
		return schedule, parseErrorf(FieldMinute, "must be a single value, got %q (wildcards and lists are not supported for minute)", fields[0])
	}

	hours, err := parseField(FieldHour, fields[1], 0, 23)
	if err != nil {
		return schedule, err
	}
	if len(hours) != 1 {
		return schedule, parseErrorf(FieldHour, "must be a single value, got %q (wildcards and lists are not supported for hour)", fields[1])
	}

	daysOfMonth, err := parseField(FieldDayOfMonth, fields[2], 1, 31)
	if err != nil {
		return schedule, err
	}

	if fields[3] != "*" {
		return schedule, parseErrorf(FieldMonth, "month filtering is not supported, use %q", "*")
	}

	daysOfWeek, err := parseField(FieldDayOfWeek, fields[4], 0, 6)
	if err != nil {
		return schedule, err
	}

	schedule.Minute = minutes[0]
	schedule.Hour = hours[0]
	schedule.DaysOfMonth = daysOfMonth
	schedule.DaysOfWeek = daysOfWeek
	return schedule, nil
}

// parseField parses one cron field into a sorted, deduplicated value list.
// `*` yields an empty list, meaning "all values".
func parseField(name, field string, min, max int) ([]int, error) {
	if field == "" {
		return nil, parseErrorf(name, "field is empty")
	}
	if field == "*" {
		return []int{}, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		values, err := parseAtom(name, part, min, max)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			seen[v] = true
		}
	}

	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)
	return values, nil
}

// parseAtom parses a single list element: value, range, or step form.
func parseAtom(name, atom string, min, max int) ([]int, error) {
	if atom == "" {
		return nil, parseErrorf(name, "empty list element")
	}

	base, stepStr, hasStep := strings.Cut(atom, "/")
	step := 1
	if hasStep {
		s, err := strconv.Atoi(stepStr)
		if err != nil || s <= 0 {
			return nil, parseErrorf(name, "invalid step %q", stepStr)
		}
		step = s
	}

	lo, hi := min, max
	switch {
	case base == "*":
		if !hasStep {
			// Bare "*" handled by parseField; "*" inside a list is redundant
			// but harmless, expand it.
			lo, hi = min, max
		}
	case strings.Contains(base, "-"):
		loStr, hiStr, _ := strings.Cut(base, "-")
		var err error
		if lo, err = parseValue(name, loStr, min, max); err != nil {
			return nil, err
		}
		if hi, err = parseValue(name, hiStr, min, max); err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, parseErrorf(name, "range %q is inverted", base)
		}
	default:
		v, err := parseValue(name, base, min, max)
		if err != nil {
			return nil, err
		}
		if !hasStep {
			return []int{v}, nil
		}
		// base/step with a single base means "from base to max by step"
		lo, hi = v, max
	}

	var values []int
	for v := lo; v <= hi; v += step {
		values = append(values, v)
	}
	return values, nil
}

// parseValue parses a bare integer and enforces the field's domain.
func parseValue(name, s string, min, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, parseErrorf(name, "invalid value %q", s)
	}
	if v < min || v > max {
		return 0, parseErrorf(name, "value %d out of range %d-%d", v, min, max)
	}
	return v, nil
}

// ToCronExpression is the exact inverse of Parse for any schedule Parse
// can produce: empty day sets render as `*`, month is always `*`.
func ToCronExpression(s types.CronSchedule) string {
	return fmt.Sprintf("%d %d %s * %s", s.Minute, s.Hour, joinField(s.DaysOfMonth), joinField(s.DaysOfWeek))
}

func joinField(values []int) string {
	if len(values) == 0 {
		return "*"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
