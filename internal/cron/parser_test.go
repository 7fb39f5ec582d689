package cron

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cardpilot/cardpilot/internal/types"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want types.CronSchedule
	}{
		{
			name: "weekday mornings",
			expr: "0 9 * * 1,3,5",
			want: types.CronSchedule{Minute: 0, Hour: 9, DaysOfMonth: []int{}, DaysOfWeek: []int{1, 3, 5}},
		},
		{
			name: "every day",
			expr: "30 17 * * *",
			want: types.CronSchedule{Minute: 30, Hour: 17, DaysOfMonth: []int{}, DaysOfWeek: []int{}},
		},
		{
			name: "first and fifteenth",
			expr: "0 8 1,15 * *",
			want: types.CronSchedule{Minute: 0, Hour: 8, DaysOfMonth: []int{1, 15}, DaysOfWeek: []int{}},
		},
		{
			name: "day-of-week range",
			expr: "15 6 * * 1-5",
			want: types.CronSchedule{Minute: 15, Hour: 6, DaysOfMonth: []int{}, DaysOfWeek: []int{1, 2, 3, 4, 5}},
		},
		{
			name: "day-of-month step",
			expr: "0 12 */10 * *",
			want: types.CronSchedule{Minute: 0, Hour: 12, DaysOfMonth: []int{1, 11, 21, 31}, DaysOfWeek: []int{}},
		},
		{
			name: "duplicate days deduplicated",
			expr: "0 9 * * 1,1,3",
			want: types.CronSchedule{Minute: 0, Hour: 9, DaysOfMonth: []int{}, DaysOfWeek: []int{1, 3}},
		},
		{
			name: "unsorted days sorted",
			expr: "0 9 * * 5,1,3",
			want: types.CronSchedule{Minute: 0, Hour: 9, DaysOfMonth: []int{}, DaysOfWeek: []int{1, 3, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v, want nil", tt.expr, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		wantField string
	}{
		{name: "empty expression", expr: "", wantField: FieldExpression},
		{name: "too few fields", expr: "0 9 *", wantField: FieldExpression},
		{name: "six fields", expr: "0 0 9 * * 1", wantField: FieldExpression},
		{name: "seven fields", expr: "0 0 9 * * 1 2026", wantField: FieldExpression},
		{name: "wildcard minute", expr: "* 9 * * *", wantField: FieldMinute},
		{name: "minute list", expr: "0,30 9 * * *", wantField: FieldMinute},
		{name: "wildcard hour", expr: "0 * * * *", wantField: FieldHour},
		{name: "hour range", expr: "0 9-17 * * *", wantField: FieldHour},
		{name: "minute out of range", expr: "60 9 * * *", wantField: FieldMinute},
		{name: "hour out of range", expr: "0 24 * * *", wantField: FieldHour},
		{name: "day-of-month zero", expr: "0 9 0 * *", wantField: FieldDayOfMonth},
		{name: "day-of-week out of range", expr: "0 9 * * 7", wantField: FieldDayOfWeek},
		{name: "month restriction", expr: "0 9 * 3 *", wantField: FieldMonth},
		{name: "last-day extension", expr: "0 9 L * *", wantField: FieldDayOfMonth},
		{name: "weekday extension", expr: "0 9 15W * *", wantField: FieldDayOfMonth},
		{name: "nth-weekday extension", expr: "0 9 * * 1#2", wantField: FieldDayOfWeek},
		{name: "question mark", expr: "0 9 ? * *", wantField: FieldDayOfMonth},
		{name: "inverted range", expr: "0 9 * * 5-1", wantField: FieldDayOfWeek},
		{name: "garbage value", expr: "0 9 * * mon", wantField: FieldDayOfWeek},
		{name: "invalid step", expr: "0 9 */0 * *", wantField: FieldDayOfMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q) error = nil, want field %q error", tt.expr, tt.wantField)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse(%q) error type = %T, want *ParseError", tt.expr, err)
			}
			if perr.Field != tt.wantField {
				t.Errorf("Parse(%q) error field = %q, want %q", tt.expr, perr.Field, tt.wantField)
			}
		})
	}
}

func TestParse_TooManyFieldsMessageMentionsVariants(t *testing.T) {
	_, err := Parse("0 0 9 * * 1")
	if err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "seconds or years") {
		t.Errorf("error %q does not point at seconds/years variants", err.Error())
	}
}

func TestToCronExpression(t *testing.T) {
	tests := []struct {
		name     string
		schedule types.CronSchedule
		want     string
	}{
		{
			name:     "every day",
			schedule: types.CronSchedule{Minute: 30, Hour: 17},
			want:     "30 17 * * *",
		},
		{
			name:     "weekdays",
			schedule: types.CronSchedule{Minute: 0, Hour: 9, DaysOfWeek: []int{1, 3, 5}},
			want:     "0 9 * * 1,3,5",
		},
		{
			name:     "days of month",
			schedule: types.CronSchedule{Minute: 0, Hour: 8, DaysOfMonth: []int{1, 15}},
			want:     "0 8 1,15 * *",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToCronExpression(tt.schedule)
			if got != tt.want {
				t.Errorf("ToCronExpression() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Property: any schedule the parser accepts survives a
// render-then-reparse round trip unchanged.
func TestParse_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genDaySet := func(max int, min int) gopter.Gen {
		return gen.SliceOf(gen.IntRange(min, max))
	}

	properties.Property("render then reparse is identity", prop.ForAll(
		func(minute, hour int, dows, doms []int) bool {
			s := types.CronSchedule{
				Minute:      minute,
				Hour:        hour,
				DaysOfWeek:  normalize(dows),
				DaysOfMonth: normalize(doms),
			}
			reparsed, err := Parse(ToCronExpression(s))
			if err != nil {
				return false
			}
			return reparsed.Equal(s)
		},
		gen.IntRange(0, 59),
		gen.IntRange(0, 23),
		genDaySet(6, 0),
		genDaySet(31, 1),
	))

	properties.TestingRun(t)
}

// normalize mirrors the parser's sorted-dedup invariant so generated
// day sets are comparable with parsed ones.
func normalize(values []int) []int {
	seen := make(map[int]bool)
	out := []int{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
