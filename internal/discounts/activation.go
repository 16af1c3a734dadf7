package discounts

import "time"

const scheduleTimeLayout = "15:04"

// IsActive reports whether rule may fire at now. Only automatic rules are ever active. Date bounds
// and schedule times are read on now's clock, so callers pick the restaurant's location by
// converting now before the call.
func IsActive(rule Rule, now time.Time) bool {
	if rule == nil {
		return false
	}
	base := rule.Base()
	if !base.Automatic {
		return false
	}
	return base.Window.Allows(now)
}

// Allows reports whether now falls inside the window.
func (w Window) Allows(now time.Time) bool {
	if w.DateRange != nil && !w.DateRange.Contains(now) {
		return false
	}
	if w.Schedule != nil && !w.Schedule.Allows(now) {
		return false
	}
	return true
}

// Contains reports whether now lies between the start of the first day and 23:59:59 of the last.
func (r DateRange) Contains(now time.Time) bool {
	loc := now.Location()
	if r.Start != nil {
		start := time.Date(r.Start.Year, r.Start.Month, r.Start.Day, 0, 0, 0, 0, loc)
		if now.Before(start) {
			return false
		}
	}
	if r.End != nil {
		end := time.Date(r.End.Year, r.End.Month, r.End.Day, 23, 59, 59, 0, loc)
		if now.After(end) {
			return false
		}
	}
	return true
}

// Allows reports whether now's weekday is scheduled and its HH:MM time lies within [Start, End].
// Zero-padded 24-hour times compare correctly as strings.
func (s Schedule) Allows(now time.Time) bool {
	if !s.Days[now.Weekday()] {
		return false
	}
	clock := now.Format(scheduleTimeLayout)
	return clock >= s.Start && clock <= s.End
}
