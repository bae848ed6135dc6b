// internal/bookings/clock.go

// Package bookings holds the weekly court-reservation core: week-window
// math, booking rules, conflict detection, and the diff-based sync plan.
// Everything here is pure; storage and transport live with the callers.
package bookings

import "time"

// SlotTimeLayout is the wire format for slot timestamps: a naive wall-clock
// value with no zone designator. Values are interpreted as UTC on ingest
// and formatted back the same way at the boundary.
const SlotTimeLayout = "2006-01-02T15:04:05"

// WeekWindow is one booking week. Monday is always a Monday at 00:00:00;
// Sunday is Monday plus six days. The active interval for cap checks and
// sync scoping is the half-open [Monday, Monday+7d).
type WeekWindow struct {
	Monday time.Time
	Sunday time.Time
}

// End returns the exclusive end of the window, the following Monday 00:00.
func (w WeekWindow) End() time.Time {
	return w.Monday.AddDate(0, 0, 7)
}

// Contains reports whether t falls inside [Monday, Monday+7d).
func (w WeekWindow) Contains(t time.Time) bool {
	return !t.Before(w.Monday) && t.Before(w.End())
}

// WeekWindowFor returns the Monday-aligned week containing ref, shifted by
// offset weeks. Weeks run Monday through Sunday, so a Sunday reference
// belongs to the preceding Monday's week. Time-of-day is normalized to
// midnight in ref's location.
func WeekWindowFor(ref time.Time, offset int) WeekWindow {
	daysSinceMonday := int(ref.Weekday()) - 1
	if ref.Weekday() == time.Sunday {
		daysSinceMonday = 6
	}

	monday := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	monday = monday.AddDate(0, 0, -daysSinceMonday+offset*7)

	return WeekWindow{
		Monday: monday,
		Sunday: monday.AddDate(0, 0, 6),
	}
}

// WindowForSlots derives the week context from the earliest slot in the
// set. The caller's data, not the current date, decides which week a sync
// applies to. An empty set yields the zero window.
func WindowForSlots(slots []time.Time) WeekWindow {
	if len(slots) == 0 {
		return WeekWindow{}
	}
	earliest := slots[0]
	for _, t := range slots[1:] {
		if t.Before(earliest) {
			earliest = t
		}
	}
	return WeekWindowFor(earliest, 0)
}

// SameCalendarDay reports whether a and b fall on the same calendar day.
// Field-wise comparison; both values are assumed to already be in the same
// location.
func SameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// SameHourSlot reports whether a and b identify the same hour slot.
func SameHourSlot(a, b time.Time) bool {
	return SameCalendarDay(a, b) && a.Hour() == b.Hour()
}
