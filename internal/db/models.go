// internal/db/models.go
package db

import (
	"database/sql"
	"time"
)

// User types mirror how the account was created: admins are promoted by
// hand, everyone else starts passwordless and upgrades via set-password.
const (
	UserTypeAdmin           = "admin"
	UserTypeWithPassword    = "user-with-password"
	UserTypeWithoutPassword = "user-without-password"
)

const (
	ReservationStatusConfirmed = "Confirmed"
	ReservationStatusPending   = "Pending"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash sql.NullString
	UserType     string
	CreatedAt    time.Time
}

type Court struct {
	ID        int64
	Name      string
	Number    int64
	CreatedAt time.Time
}

type Reservation struct {
	ID         int64
	CourtID    int64
	UserID     sql.NullInt64
	UserName   sql.NullString
	UserEmail  sql.NullString
	Status     string
	BookedTime time.Time
	CreatedAt  time.Time
}

type Tournament struct {
	ID          int64
	Title       string
	Description sql.NullString
	Category    string
	StartAt     sql.NullTime
	Status      string
	CreatedBy   sql.NullInt64
	CreatedAt   time.Time
}

type TournamentRegistration struct {
	ID           int64
	TournamentID int64
	TeamName     sql.NullString
	Email        string
	TelNumber    string
	Players      string
	CreatedAt    time.Time
}

// ReservationWithUsername is the week-read row shape: reservation slot plus
// the holder's username when the holder is a registered user.
type ReservationWithUsername struct {
	ID         int64
	BookedTime time.Time
	UserID     sql.NullInt64
	Username   sql.NullString
}

// RegistrationWithTournament joins a sign-up with its tournament title for
// the admin overview.
type RegistrationWithTournament struct {
	TournamentRegistration
	TournamentTitle string
}
