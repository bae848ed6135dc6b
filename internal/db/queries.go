// internal/db/queries.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query layer can
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// ---- users ----

type CreateUserParams struct {
	Username string
	Email    string
	UserType string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, user_type)
		 VALUES (?, ?, ?)
		 RETURNING id, username, email, password_hash, user_type, created_at`,
		arg.Username, arg.Email, arg.UserType,
	)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, user_type, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, user_type, created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, user_type, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) DeleteUserByEmail(ctx context.Context, email string) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type SetUserPasswordParams struct {
	ID           int64
	PasswordHash string
	UserType     string
}

func (q *Queries) SetUserPassword(ctx context.Context, arg SetUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, user_type = ? WHERE id = ?`,
		arg.PasswordHash, arg.UserType, arg.ID)
	return err
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType, &u.CreatedAt)
	return u, err
}

// ---- courts ----

type CreateCourtParams struct {
	Name   string
	Number int64
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO courts (name, number) VALUES (?, ?)
		 RETURNING id, name, number, created_at`,
		arg.Name, arg.Number)
	var c Court
	err := row.Scan(&c.ID, &c.Name, &c.Number, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, name, number, created_at FROM courts WHERE id = ?`, id)
	var c Court
	err := row.Scan(&c.ID, &c.Name, &c.Number, &c.CreatedAt)
	return c, err
}

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, number, created_at FROM courts ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Number, &c.CreatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (q *Queries) DeleteCourt(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ---- reservations ----

const reservationColumns = `id, court_id, user_id, user_name, user_email, status, booked_time, created_at`

type ListCourtReservationsInWindowParams struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
}

// ListCourtReservationsInWindow returns every user's reservations for one
// court inside [StartTime, EndTime).
func (q *Queries) ListCourtReservationsInWindow(ctx context.Context, arg ListCourtReservationsInWindowParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE court_id = ? AND booked_time >= ? AND booked_time < ?
		 ORDER BY booked_time`,
		arg.CourtID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

type ListCourtReservationsWithUsernamesParams struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
}

func (q *Queries) ListCourtReservationsWithUsernames(ctx context.Context, arg ListCourtReservationsWithUsernamesParams) ([]ReservationWithUsername, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT r.id, r.booked_time, u.id, u.username
		 FROM reservations r
		 LEFT JOIN users u ON r.user_id = u.id
		 WHERE r.court_id = ? AND r.booked_time >= ? AND r.booked_time < ?
		 ORDER BY r.booked_time`,
		arg.CourtID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReservationWithUsername
	for rows.Next() {
		var item ReservationWithUsername
		if err := rows.Scan(&item.ID, &item.BookedTime, &item.UserID, &item.Username); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type CreateReservationParams struct {
	UserID     int64
	CourtID    int64
	BookedTime time.Time
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO reservations (user_id, court_id, booked_time)
		 VALUES (?, ?, ?)
		 RETURNING `+reservationColumns,
		arg.UserID, arg.CourtID, arg.BookedTime)
	return scanReservation(row)
}

type CreateGuestReservationParams struct {
	UserName   string
	UserEmail  string
	CourtID    int64
	BookedTime time.Time
}

func (q *Queries) CreateGuestReservation(ctx context.Context, arg CreateGuestReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO reservations (user_id, user_name, user_email, court_id, booked_time, status)
		 VALUES (NULL, ?, ?, ?, ?, ?)
		 RETURNING `+reservationColumns,
		arg.UserName, arg.UserEmail, arg.CourtID, arg.BookedTime, ReservationStatusPending)
	return scanReservation(row)
}

type DeleteUserReservationsInWindowParams struct {
	UserID    int64
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
}

// DeleteUserReservationsInWindow clears one user's reservations for a court
// inside [StartTime, EndTime) and reports how many rows went away.
func (q *Queries) DeleteUserReservationsInWindow(ctx context.Context, arg DeleteUserReservationsInWindowParams) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM reservations
		 WHERE user_id = ? AND court_id = ? AND booked_time >= ? AND booked_time < ?`,
		arg.UserID, arg.CourtID, arg.StartTime, arg.EndTime)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type DeleteUserReservationsByTimesParams struct {
	UserID  int64
	CourtID int64
	Times   []time.Time
}

// DeleteUserReservationsByTimes batch-deletes one user's reservations on a
// court matching the given slot times exactly.
func (q *Queries) DeleteUserReservationsByTimes(ctx context.Context, arg DeleteUserReservationsByTimesParams) (int64, error) {
	if len(arg.Times) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(arg.Times)), ",")
	args := make([]any, 0, len(arg.Times)+2)
	args = append(args, arg.UserID, arg.CourtID)
	for _, t := range arg.Times {
		args = append(args, t)
	}

	result, err := q.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM reservations
		 WHERE user_id = ? AND court_id = ? AND booked_time IN (%s)`, placeholders),
		args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type GetReservationByCourtAndTimeParams struct {
	CourtID    int64
	BookedTime time.Time
}

func (q *Queries) GetReservationByCourtAndTime(ctx context.Context, arg GetReservationByCourtAndTimeParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations WHERE court_id = ? AND booked_time = ?`,
		arg.CourtID, arg.BookedTime)
	return scanReservation(row)
}

func (q *Queries) DeleteReservation(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type ListReservationsStartingBetweenParams struct {
	StartTime time.Time
	EndTime   time.Time
}

// ListReservationsStartingBetween returns reservations across all courts with
// booked_time inside [StartTime, EndTime), used by the reminder job.
func (q *Queries) ListReservationsStartingBetween(ctx context.Context, arg ListReservationsStartingBetweenParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE booked_time >= ? AND booked_time < ?
		 ORDER BY booked_time`,
		arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func scanReservation(row *sql.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.CourtID, &r.UserID, &r.UserName, &r.UserEmail, &r.Status, &r.BookedTime, &r.CreatedAt)
	return r, err
}

func collectReservations(rows *sql.Rows) ([]Reservation, error) {
	var reservations []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.ID, &r.CourtID, &r.UserID, &r.UserName, &r.UserEmail, &r.Status, &r.BookedTime, &r.CreatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// ---- tournaments ----

const tournamentColumns = `id, title, description, category, start_at, status, created_by, created_at`

func (q *Queries) ListActiveTournaments(ctx context.Context) ([]Tournament, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tournamentColumns+`
		 FROM tournaments WHERE status = 'active'
		 ORDER BY start_at IS NULL, start_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTournaments(rows)
}

func (q *Queries) ListAllTournaments(ctx context.Context) ([]Tournament, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tournamentColumns+`
		 FROM tournaments ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTournaments(rows)
}

func (q *Queries) GetTournament(ctx context.Context, id int64) (Tournament, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+tournamentColumns+` FROM tournaments WHERE id = ?`, id)
	return scanTournament(row)
}

type CreateTournamentParams struct {
	Title       string
	Description sql.NullString
	Category    string
	StartAt     sql.NullTime
	Status      string
	CreatedBy   sql.NullInt64
}

func (q *Queries) CreateTournament(ctx context.Context, arg CreateTournamentParams) (Tournament, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO tournaments (title, description, category, start_at, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+tournamentColumns,
		arg.Title, arg.Description, arg.Category, arg.StartAt, arg.Status, arg.CreatedBy)
	return scanTournament(row)
}

type UpdateTournamentParams struct {
	ID          int64
	Title       sql.NullString
	Description sql.NullString
	Category    sql.NullString
	StartAt     sql.NullTime
	Status      sql.NullString
}

// UpdateTournament overwrites only the fields present in the payload; absent
// fields keep their stored value.
func (q *Queries) UpdateTournament(ctx context.Context, arg UpdateTournamentParams) (Tournament, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE tournaments SET
		   title = COALESCE(?, title),
		   description = COALESCE(?, description),
		   category = COALESCE(?, category),
		   start_at = COALESCE(?, start_at),
		   status = COALESCE(?, status)
		 WHERE id = ?
		 RETURNING `+tournamentColumns,
		arg.Title, arg.Description, arg.Category, arg.StartAt, arg.Status, arg.ID)
	return scanTournament(row)
}

func (q *Queries) DeleteTournament(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanTournament(row *sql.Row) (Tournament, error) {
	var t Tournament
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.StartAt, &t.Status, &t.CreatedBy, &t.CreatedAt)
	return t, err
}

func collectTournaments(rows *sql.Rows) ([]Tournament, error) {
	var tournaments []Tournament
	for rows.Next() {
		var t Tournament
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.StartAt, &t.Status, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

// ---- tournament registrations ----

const registrationColumns = `id, tournament_id, team_name, email, tel_number, players, created_at`

type CreateTournamentRegistrationParams struct {
	TournamentID int64
	TeamName     sql.NullString
	Email        string
	TelNumber    string
	Players      string
}

func (q *Queries) CreateTournamentRegistration(ctx context.Context, arg CreateTournamentRegistrationParams) (TournamentRegistration, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO tournament_registrations (tournament_id, team_name, email, tel_number, players)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING `+registrationColumns,
		arg.TournamentID, arg.TeamName, arg.Email, arg.TelNumber, arg.Players)
	return scanRegistration(row)
}

type UpdateTournamentRegistrationParams struct {
	ID        int64
	TeamName  sql.NullString
	Email     sql.NullString
	TelNumber sql.NullString
	Players   sql.NullString
}

func (q *Queries) UpdateTournamentRegistration(ctx context.Context, arg UpdateTournamentRegistrationParams) (TournamentRegistration, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE tournament_registrations SET
		   team_name = COALESCE(?, team_name),
		   email = COALESCE(?, email),
		   tel_number = COALESCE(?, tel_number),
		   players = COALESCE(?, players)
		 WHERE id = ?
		 RETURNING `+registrationColumns,
		arg.TeamName, arg.Email, arg.TelNumber, arg.Players, arg.ID)
	return scanRegistration(row)
}

func (q *Queries) DeleteTournamentRegistration(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM tournament_registrations WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) ListAllRegistrations(ctx context.Context) ([]RegistrationWithTournament, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT tr.id, tr.tournament_id, tr.team_name, tr.email, tr.tel_number, tr.players, tr.created_at, t.title
		 FROM tournament_registrations tr
		 JOIN tournaments t ON t.id = tr.tournament_id
		 ORDER BY tr.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RegistrationWithTournament
	for rows.Next() {
		var item RegistrationWithTournament
		if err := rows.Scan(&item.ID, &item.TournamentID, &item.TeamName, &item.Email, &item.TelNumber, &item.Players, &item.CreatedAt, &item.TournamentTitle); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (q *Queries) ListRegistrationsByTournament(ctx context.Context, tournamentID int64) ([]TournamentRegistration, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM tournament_registrations
		 WHERE tournament_id = ?
		 ORDER BY created_at DESC`,
		tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var registrations []TournamentRegistration
	for rows.Next() {
		var reg TournamentRegistration
		if err := rows.Scan(&reg.ID, &reg.TournamentID, &reg.TeamName, &reg.Email, &reg.TelNumber, &reg.Players, &reg.CreatedAt); err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}

func scanRegistration(row *sql.Row) (TournamentRegistration, error) {
	var reg TournamentRegistration
	err := row.Scan(&reg.ID, &reg.TournamentID, &reg.TeamName, &reg.Email, &reg.TelNumber, &reg.Players, &reg.CreatedAt)
	return reg, err
}
