package types

// CronSchedule is the structured form of a cron-style schedule. It is NOT
// a raw cron expression: minute and hour are single values, month
// filtering is unsupported, and empty day sets mean "every day".
// internal/cron converts between this and 5-field cron strings at the
// import/export boundary.
type CronSchedule struct {
	Hour        int   `json:"hour"`
	Minute      int   `json:"minute"`
	DaysOfWeek  []int `json:"days_of_week"`  // 0 = Sunday .. 6 = Saturday
	DaysOfMonth []int `json:"days_of_month"` // 1..31
}

// Equal reports whether two schedules denote the same firing pattern.
// Day sets are compared as sorted sets; callers normalize via sort before
// comparison is needed, and the cron parser always emits sorted sets.
func (c CronSchedule) Equal(o CronSchedule) bool {
	if c.Hour != o.Hour || c.Minute != o.Minute {
		return false
	}
	if len(c.DaysOfWeek) != len(o.DaysOfWeek) || len(c.DaysOfMonth) != len(o.DaysOfMonth) {
		return false
	}
	for i, d := range c.DaysOfWeek {
		if o.DaysOfWeek[i] != d {
			return false
		}
	}
	for i, d := range c.DaysOfMonth {
		if o.DaysOfMonth[i] != d {
			return false
		}
	}
	return true
}
