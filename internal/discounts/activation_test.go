package discounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsActive(t *testing.T) {
	saigon := time.FixedZone("ICT", 7*60*60)
	june := &DateRange{
		Start: &Date{Year: 2024, Month: time.June, Day: 1},
		End:   &Date{Year: 2024, Month: time.June, Day: 30},
	}
	lunch := &Schedule{Days: map[time.Weekday]bool{time.Monday: true, time.Tuesday: true}, Start: "11:00", End: "14:00"}

	tests := []struct {
		name   string
		manual bool
		window Window
		now    time.Time
		want   bool
	}{
		{name: "no window", now: monday, want: true},
		{name: "manual rule", manual: true, now: monday, want: false},
		{name: "first day midnight", window: Window{DateRange: june}, now: time.Date(2024, time.June, 1, 0, 0, 0, 0, saigon), want: true},
		{name: "last second of last day", window: Window{DateRange: june}, now: time.Date(2024, time.June, 30, 23, 59, 59, 0, saigon), want: true},
		{name: "after last day", window: Window{DateRange: june}, now: time.Date(2024, time.July, 1, 0, 0, 0, 0, saigon), want: false},
		{name: "before first day", window: Window{DateRange: june}, now: time.Date(2024, time.May, 31, 23, 59, 0, 0, saigon), want: false},
		{name: "open start", window: Window{DateRange: &DateRange{End: june.End}}, now: time.Date(2020, time.January, 1, 9, 0, 0, 0, saigon), want: true},
		{name: "inside schedule", window: Window{Schedule: lunch}, now: time.Date(2024, time.June, 3, 11, 0, 0, 0, saigon), want: true},
		{name: "schedule end inclusive", window: Window{Schedule: lunch}, now: time.Date(2024, time.June, 4, 14, 0, 30, 0, saigon), want: true},
		{name: "after schedule", window: Window{Schedule: lunch}, now: time.Date(2024, time.June, 3, 14, 1, 0, 0, saigon), want: false},
		{name: "unscheduled weekday", window: Window{Schedule: lunch}, now: time.Date(2024, time.June, 5, 12, 0, 0, 0, saigon), want: false},
		{name: "both windows", window: Window{DateRange: june, Schedule: lunch}, now: time.Date(2024, time.June, 10, 12, 0, 0, 0, saigon), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := FlatRule{RuleBase: RuleBase{ID: "r", Automatic: !tc.manual, Window: tc.window}}
			assert.Equal(t, tc.want, IsActive(rule, tc.now))
		})
	}
}

func TestIsActive_ReadsClockInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	rule := FlatRule{RuleBase: RuleBase{
		ID:        "late",
		Automatic: true,
		Window: Window{DateRange: &DateRange{
			Start: &Date{Year: 2024, Month: time.June, Day: 4},
		}},
	}}
	instant := time.Date(2024, time.June, 3, 18, 30, 0, 0, time.UTC)

	assert.False(t, IsActive(rule, instant))
	assert.True(t, IsActive(rule, instant.In(loc)))
	assert.False(t, IsActive(nil, instant))
}
