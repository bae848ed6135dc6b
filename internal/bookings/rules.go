// internal/bookings/rules.go
package bookings

import (
	"errors"
	"time"
)

var (
	ErrPastSlot         = errors.New("cannot book a slot in the past")
	ErrSameDaySlot      = errors.New("same-day slots can no longer be booked")
	ErrAfterCutoff      = errors.New("next-day slots cannot be booked after the cutoff hour")
	ErrDailyCapReached  = errors.New("daily booking limit reached")
	ErrWeeklyCapReached = errors.New("weekly booking limit reached")
)

// Rules are the club's booking limits for a single member.
type Rules struct {
	// DailyCap is the maximum number of hour slots per calendar day.
	DailyCap int
	// WeeklyCap is the maximum number of hour slots per booking week.
	WeeklyCap int
	// CutoffHour closes next-day booking: once the wall clock passes this
	// hour, tomorrow's slots are no longer available.
	CutoffHour int
}

// DefaultRules returns the club defaults: 2 hours per day, 10 per week,
// next-day booking closes at 18:00.
func DefaultRules() Rules {
	return Rules{DailyCap: 2, WeeklyCap: 10, CutoffHour: 18}
}

// Check validates one candidate slot. own is the user's current reservation
// set for the candidate's court and week; a slot equal to the candidate is
// excluded from the cap counts so re-submitting an already-held slot never
// trips a limit. Checks run in order and the first violation wins.
func (r Rules) Check(now, candidate time.Time, own []time.Time) error {
	if candidate.Before(now) {
		return ErrPastSlot
	}
	if SameCalendarDay(now, candidate) {
		return ErrSameDaySlot
	}

	tomorrow := now.AddDate(0, 0, 1)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), r.CutoffHour, 0, 0, 0, now.Location())
	if SameCalendarDay(tomorrow, candidate) && now.After(cutoff) {
		return ErrAfterCutoff
	}

	window := WeekWindowFor(candidate, 0)
	var sameDay, sameWeek int
	for _, t := range own {
		if SameHourSlot(t, candidate) {
			continue
		}
		if SameCalendarDay(t, candidate) {
			sameDay++
		}
		if window.Contains(t) {
			sameWeek++
		}
	}
	if sameDay >= r.DailyCap {
		return ErrDailyCapReached
	}
	if sameWeek >= r.WeeklyCap {
		return ErrWeeklyCapReached
	}

	return nil
}

// CheckSet validates a full desired slot set the way Check validates a
// single candidate: each slot is checked against the rest of the set, so a
// submission that would exceed a cap on its own is rejected even before any
// of it is stored. Returns the first violation found, together with the
// offending slot.
func (r Rules) CheckSet(now time.Time, desired []time.Time) (time.Time, error) {
	for _, candidate := range desired {
		if err := r.Check(now, candidate, desired); err != nil {
			return candidate, err
		}
	}
	return time.Time{}, nil
}
