package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cardpilot/cardpilot/internal/rules"
	"github.com/cardpilot/cardpilot/internal/types"
)

var evalNow = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func intervalTrigger(minutes int, last *time.Time, policy rules.CatchUpPolicy) rules.Trigger {
	return rules.Trigger{
		Type: rules.TriggerScheduleInterval,
		Schedule: &rules.Schedule{
			IntervalMinutes: minutes,
			LastEvaluatedAt: last,
			CatchUp:         policy,
		},
	}
}

func TestShouldFire_IntervalSteadyState(t *testing.T) {
	last := evalNow.Add(-30 * time.Minute)
	res, err := ShouldFire(intervalTrigger(30, &last, rules.CatchUpLatest), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Error("Fire = false, want true after exactly one interval")
	}
	if res.Missed != 0 {
		t.Errorf("Missed = %d, want 0", res.Missed)
	}
	if res.Type != rules.ExecScheduled {
		t.Errorf("Type = %v, want scheduled", res.Type)
	}
	if !res.NextEvaluatedAt.Equal(evalNow) {
		t.Errorf("NextEvaluatedAt = %v, want now", res.NextEvaluatedAt)
	}
}

func TestShouldFire_IntervalNotYet(t *testing.T) {
	last := evalNow.Add(-10 * time.Minute)
	res, err := ShouldFire(intervalTrigger(30, &last, rules.CatchUpLatest), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if res.Fire {
		t.Error("Fire = true before the interval elapsed, want false")
	}
	if !res.NextEvaluatedAt.Equal(last) {
		t.Errorf("NextEvaluatedAt = %v, want unchanged %v", res.NextEvaluatedAt, last)
	}
}

func TestShouldFire_IntervalCatchUpCollapse(t *testing.T) {
	// 95 minutes of downtime on a 30-minute interval: three windows
	// elapsed, exactly one execution, two reported missed.
	last := evalNow.Add(-95 * time.Minute)
	res, err := ShouldFire(intervalTrigger(30, &last, rules.CatchUpLatest), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Fatal("Fire = false, want true")
	}
	if res.Missed != 2 {
		t.Errorf("Missed = %d, want 2", res.Missed)
	}
	if res.Type != rules.ExecCatchUp {
		t.Errorf("Type = %v, want catch-up", res.Type)
	}
	if !res.NextEvaluatedAt.Equal(evalNow) {
		t.Errorf("NextEvaluatedAt = %v, want now", res.NextEvaluatedAt)
	}
}

func TestShouldFire_IntervalSkipMissedStaysScheduled(t *testing.T) {
	last := evalNow.Add(-95 * time.Minute)
	res, err := ShouldFire(intervalTrigger(30, &last, rules.SkipMissed), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Fatal("Fire = false, want true")
	}
	if res.Missed != 2 {
		t.Errorf("Missed = %d, want 2", res.Missed)
	}
	if res.Type != rules.ExecScheduled {
		t.Errorf("Type = %v, want scheduled under skip_missed", res.Type)
	}
}

func TestShouldFire_IntervalFirstTickInitializesOnly(t *testing.T) {
	res, err := ShouldFire(intervalTrigger(30, nil, rules.CatchUpLatest), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if res.Fire {
		t.Error("Fire = true on first tick, want bookkeeping only")
	}
	if !res.NextEvaluatedAt.Equal(evalNow) {
		t.Errorf("NextEvaluatedAt = %v, want now", res.NextEvaluatedAt)
	}
}

func TestShouldFire_IntervalOutOfRange(t *testing.T) {
	for _, minutes := range []int{0, 4, 10081} {
		_, err := ShouldFire(intervalTrigger(minutes, nil, rules.CatchUpLatest), evalNow)
		if !errors.Is(err, types.ErrIntervalOutOfRange) {
			t.Errorf("ShouldFire(interval=%d) error = %v, want ErrIntervalOutOfRange", minutes, err)
		}
	}
}

// Property: however long the downtime, an interval trigger fires at most
// once per tick and the missed count accounts for the remaining windows.
func TestShouldFire_PropertyCatchUpCollapse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one execution regardless of downtime", prop.ForAll(
		func(intervalMinutes, downMinutes int) bool {
			last := evalNow.Add(-time.Duration(downMinutes) * time.Minute)
			res, err := ShouldFire(intervalTrigger(intervalMinutes, &last, rules.CatchUpLatest), evalNow)
			if err != nil {
				return false
			}
			windows := downMinutes / intervalMinutes
			if windows == 0 {
				return !res.Fire && res.Missed == 0
			}
			return res.Fire && res.Missed == windows-1
		},
		gen.IntRange(types.MinIntervalMinutes, 120),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t)
}

func cronTrigger(c types.CronSchedule, last *time.Time) rules.Trigger {
	return rules.Trigger{
		Type:     rules.TriggerScheduleCron,
		Schedule: &rules.Schedule{Cron: &c, LastEvaluatedAt: last},
	}
}

func TestShouldFire_CronFiresAfterInstant(t *testing.T) {
	// Daily at 14:30; last evaluated 13:00, now 15:00. The 14:30 instant
	// is inside the window.
	c := types.CronSchedule{Hour: 14, Minute: 30}
	res, err := ShouldFire(cronTrigger(c, timePtr(evalNow.Add(-2*time.Hour))), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Error("Fire = false, want true when the instant falls inside the window")
	}
	if !res.NextEvaluatedAt.Equal(evalNow) {
		t.Errorf("NextEvaluatedAt = %v, want now", res.NextEvaluatedAt)
	}
}

func TestShouldFire_CronAlreadyFired(t *testing.T) {
	// Daily at 14:30; last evaluated 14:45, so 14:30 already fired.
	c := types.CronSchedule{Hour: 14, Minute: 30}
	res, err := ShouldFire(cronTrigger(c, timePtr(evalNow.Add(-15*time.Minute))), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if res.Fire {
		t.Error("Fire = true, want false when the instant already fired")
	}
}

func TestShouldFire_CronFirstTickInitializesOnly(t *testing.T) {
	c := types.CronSchedule{Hour: 14, Minute: 30}
	res, err := ShouldFire(cronTrigger(c, nil), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if res.Fire {
		t.Error("Fire = true on first tick, want bookkeeping only")
	}
}

func TestShouldFire_CronDowntimeCollapses(t *testing.T) {
	// Daily at 14:30, last evaluated 3 days ago: three instants elapsed,
	// still a single fire.
	c := types.CronSchedule{Hour: 14, Minute: 30}
	res, err := ShouldFire(cronTrigger(c, timePtr(evalNow.AddDate(0, 0, -3))), evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Error("Fire = false, want single catch-up fire after downtime")
	}
}

func TestMostRecentInstant(t *testing.T) {
	tests := []struct {
		name string
		c    types.CronSchedule
		now  time.Time
		want time.Time
	}{
		{
			name: "today when instant passed",
			c:    types.CronSchedule{Hour: 9, Minute: 0},
			now:  evalNow, // Friday 15:00
			want: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "yesterday when instant pending",
			c:    types.CronSchedule{Hour: 16, Minute: 0},
			now:  evalNow,
			want: time.Date(2026, 8, 27, 16, 0, 0, 0, time.UTC),
		},
		{
			name: "most recent matching weekday",
			c:    types.CronSchedule{Hour: 9, Minute: 0, DaysOfWeek: []int{1}}, // Monday
			now:  evalNow,
			want: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "day of month",
			c:    types.CronSchedule{Hour: 9, Minute: 0, DaysOfMonth: []int{15}},
			now:  evalNow,
			want: time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "union of weekday and day of month",
			c:    types.CronSchedule{Hour: 9, Minute: 0, DaysOfWeek: []int{1}, DaysOfMonth: []int{27}},
			now:  evalNow,
			// The 27th (Thursday) is more recent than last Monday the 24th.
			want: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mostRecentInstant(tt.c, tt.now)
			if !ok {
				t.Fatal("mostRecentInstant() ok = false, want true")
			}
			if !got.Equal(tt.want) {
				t.Errorf("mostRecentInstant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldFire_OneTime(t *testing.T) {
	fireAt := evalNow.Add(-time.Hour)
	trig := rules.Trigger{
		Type:     rules.TriggerScheduleOneTime,
		Schedule: &rules.Schedule{FireAt: &fireAt},
	}

	res, err := ShouldFire(trig, evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if !res.Fire {
		t.Error("Fire = false, want true for past fire instant")
	}
	if !res.DisableRule {
		t.Error("DisableRule = false, want true after one-time fire")
	}
}

func TestShouldFire_OneTimeNotYet(t *testing.T) {
	fireAt := evalNow.Add(time.Hour)
	trig := rules.Trigger{
		Type:     rules.TriggerScheduleOneTime,
		Schedule: &rules.Schedule{FireAt: &fireAt},
	}

	res, err := ShouldFire(trig, evalNow)
	if err != nil {
		t.Fatalf("ShouldFire() error = %v, want nil", err)
	}
	if res.Fire {
		t.Error("Fire = true before the fire instant, want false")
	}
	if res.DisableRule {
		t.Error("DisableRule = true without firing, want false")
	}
}

func TestShouldFire_MissingPayload(t *testing.T) {
	if _, err := ShouldFire(rules.Trigger{Type: rules.TriggerScheduleInterval}, evalNow); err == nil {
		t.Error("ShouldFire() without schedule payload error = nil, want error")
	}
	if _, err := ShouldFire(rules.Trigger{Type: rules.TriggerScheduleCron, Schedule: &rules.Schedule{}}, evalNow); err == nil {
		t.Error("ShouldFire() cron without schedule error = nil, want error")
	}
	if _, err := ShouldFire(rules.Trigger{Type: rules.TriggerScheduleOneTime, Schedule: &rules.Schedule{}}, evalNow); err == nil {
		t.Error("ShouldFire() one-time without instant error = nil, want error")
	}
}

func TestDueWindowContains(t *testing.T) {
	due := evalNow.Add(30 * time.Minute)
	task := &types.Task{ID: "task-1", DueDate: &due}
	last := evalNow.Add(-time.Hour)

	tests := []struct {
		name    string
		task    *types.Task
		offset  int
		last    *time.Time
		want    bool
	}{
		{"instant inside window", task, -60, &last, true},
		{"instant still ahead", task, 60, &last, false},
		{"instant before window", task, -120, &last, false},
		{"no due date", &types.Task{ID: "task-2"}, -60, &last, false},
		{"first tick never fires", task, -60, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueWindowContains(tt.task, tt.offset, tt.last, evalNow)
			if got != tt.want {
				t.Errorf("DueWindowContains(offset=%d) = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}
