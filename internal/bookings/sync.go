// internal/bookings/sync.go
package bookings

import (
	"sort"
	"time"

	"github.com/bsse/smashcourt/internal/db"
)

// Plan is the minimal mutation set that reconciles a user's stored
// reservations with a desired slot set for one court and week. Deletes are
// applied before inserts; nothing is ever updated in place.
type Plan struct {
	Window   WeekWindow
	ToInsert []time.Time
	ToDelete []time.Time
}

// Diff computes the slot-level set difference between the user's existing
// reservation times and the desired set. Slots in desired but not existing
// are inserted; slots in existing but not desired are deleted. Both result
// slices come back sorted ascending.
func Diff(existing, desired []time.Time) (toInsert, toDelete []time.Time) {
	existingSet := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		existingSet[t.Unix()] = struct{}{}
	}
	desiredSet := make(map[int64]struct{}, len(desired))
	for _, t := range desired {
		desiredSet[t.Unix()] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(desired))
	for _, t := range desired {
		key := t.Unix()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := existingSet[key]; !ok {
			toInsert = append(toInsert, t)
		}
	}
	for _, t := range existing {
		if _, ok := desiredSet[t.Unix()]; !ok {
			toDelete = append(toDelete, t)
		}
	}

	sortTimes(toInsert)
	sortTimes(toDelete)
	return toInsert, toDelete
}

// PlanSync partitions the incoming desired set against every reservation in
// the week window (all users, one court). If any desired slot is held by a
// different user the returned conflicts are non-empty and the plan must not
// be applied. Otherwise the plan carries the insert/delete sets computed
// from the user's own rows.
//
// existing must already be scoped to the plan's court and window; the
// window itself is inferred from the earliest desired slot.
func PlanSync(userID int64, desired []time.Time, existing []db.Reservation) (Plan, []Conflict) {
	plan := Plan{Window: WindowForSlots(desired)}

	if conflicts := FindConflicts(userID, desired, existing); len(conflicts) > 0 {
		return plan, conflicts
	}

	var own []time.Time
	for _, res := range existing {
		if res.UserID.Valid && res.UserID.Int64 == userID {
			own = append(own, res.BookedTime)
		}
	}

	plan.ToInsert, plan.ToDelete = Diff(own, desired)
	return plan, nil
}

func sortTimes(times []time.Time) {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
}
