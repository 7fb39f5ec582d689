package cron

import (
	"fmt"
	"strings"

	"github.com/cardpilot/cardpilot/internal/types"
)

var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var dayAbbrevs = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders a schedule as deterministic human text, e.g.
// "Every Monday at 09:00" or "Mon, Wed, Fri at 09:00". Used for rule
// previews and for round-trip tests; the output for a given schedule
// never varies.
func Describe(s types.CronSchedule) string {
	at := fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)

	var days string
	switch {
	case len(s.DaysOfWeek) == 0 && len(s.DaysOfMonth) == 0:
		days = "Every day"
	case len(s.DaysOfWeek) == 1 && len(s.DaysOfMonth) == 0:
		days = "Every " + dayNames[s.DaysOfWeek[0]]
	case len(s.DaysOfWeek) > 1 && len(s.DaysOfMonth) == 0:
		abbrevs := make([]string, len(s.DaysOfWeek))
		for i, d := range s.DaysOfWeek {
			abbrevs[i] = dayAbbrevs[d]
		}
		days = strings.Join(abbrevs, ", ")
	case len(s.DaysOfWeek) == 0:
		days = "On the " + ordinalList(s.DaysOfMonth) + " of the month"
	default:
		abbrevs := make([]string, len(s.DaysOfWeek))
		for i, d := range s.DaysOfWeek {
			abbrevs[i] = dayAbbrevs[d]
		}
		days = strings.Join(abbrevs, ", ") + " and the " + ordinalList(s.DaysOfMonth) + " of the month"
	}

	return days + " at " + at
}

// ordinalList renders day-of-month values as "1st, 15th".
func ordinalList(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = ordinal(d)
	}
	return strings.Join(parts, ", ")
}

// ordinal renders 1 -> "1st", 2 -> "2nd", 11 -> "11th", 22 -> "22nd".
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
