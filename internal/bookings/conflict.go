// internal/bookings/conflict.go
package bookings

import (
	"time"

	"github.com/bsse/smashcourt/internal/db"
)

// Conflict is a desired slot already held by someone else. HolderID is nil
// when the holder is a guest booking with no account.
type Conflict struct {
	BookedTime string
	HolderID   *int64
	HolderName string
}

// FindConflicts returns the existing reservations whose slot appears in the
// desired set but which belong to a different holder than userID. Guest
// reservations (null user_id) always count as a different holder. A
// non-empty result is a hard precondition failure: the caller must not
// mutate anything.
func FindConflicts(userID int64, desired []time.Time, existing []db.Reservation) []Conflict {
	wanted := make(map[int64]struct{}, len(desired))
	for _, t := range desired {
		wanted[t.Unix()] = struct{}{}
	}

	var conflicts []Conflict
	for _, res := range existing {
		if _, ok := wanted[res.BookedTime.Unix()]; !ok {
			continue
		}
		if res.UserID.Valid && res.UserID.Int64 == userID {
			continue
		}

		c := Conflict{BookedTime: res.BookedTime.Format(SlotTimeLayout)}
		if res.UserID.Valid {
			holder := res.UserID.Int64
			c.HolderID = &holder
		}
		if res.UserName.Valid {
			c.HolderName = res.UserName.String
		}
		conflicts = append(conflicts, c)
	}
	return conflicts
}
