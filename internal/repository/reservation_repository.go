package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/cineflow/cineflow/internal/model"
	"github.com/cineflow/cineflow/internal/seatmap"
)

// mysqlDupEntry is the MySQL error number for a unique-key violation.  The
// uq_session_seat key on reservation_seats turns a racing double booking
// into this error, so the store itself guarantees no overlapping insert can
// commit.
const mysqlDupEntry = 1062

// ReservationRepo is the only write path for reservations.  Create runs the
// booking transaction (occupancy check + insert as one atomic unit) and
// Cancel performs the single permitted mutation, ACTIVE -> CANCELLED.  All
// reads of per-session occupancy also live here.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// BookingRequest carries the input of the booking transaction.  Seats are
// deduplicated defensively; callers are expected to submit unique seats.
type BookingRequest struct {
	SessionID     uint64
	Seats         []string
	CustomerName  string
	CustomerEmail *string
}

// SeatAvailability pairs a seat identifier with its occupancy flag.  The
// seat-availability endpoint returns the full generated grid in this shape.
type SeatAvailability struct {
	ID       string `json:"id"`
	Occupied bool   `json:"occupied"`
}

// Occupancy summarises how full a session is.
type Occupancy struct {
	TotalSeats     int `json:"total_seats"`
	OccupiedSeats  int `json:"occupied_seats"`
	AvailableSeats int `json:"available_seats"`
	Percent        int `json:"occupancy_percent"`
}

// RevenueReport summarises ticket sales for a session.
type RevenueReport struct {
	Tickets        int    `json:"tickets"`
	UnitPriceCents uint32 `json:"unit_price_cents"`
	RevenueCents   uint64 `json:"revenue_cents"`
}

// ReservationDetail joins a reservation with its session and movie for
// admin and customer listings.
type ReservationDetail struct {
	model.Reservation
	SessionStartsAt time.Time `json:"session_starts_at"`
	Room            string    `json:"room"`
	MovieTitle      string    `json:"movie_title"`
	PriceCents      uint32    `json:"price_cents"`
}

// queryer is satisfied by both *sql.DB and *sql.Tx so occupancy reads can
// run standalone or inside the booking transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// asTransient wraps infrastructure faults in ErrTransient so callers can
// retry them; every other error passes through unchanged.
func asTransient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%v: %w", err, ErrTransient)
	}
	return err
}

// sessionGeometry loads a session's grid dimensions, failing with
// ErrSessionNotFound.  forUpdate locks the session row, which serialises
// concurrent booking transactions for the same session.
func sessionGeometry(ctx context.Context, q queryer, sessionID uint64, forUpdate bool) (rows, cols int, err error) {
	query := `SELECT seat_rows, seat_cols FROM sessions WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	err = q.QueryRowContext(ctx, query, sessionID).Scan(&rows, &cols)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrSessionNotFound
	}
	return rows, cols, asTransient(err)
}

// occupiedSet unions the seat sets of all ACTIVE reservations for a
// session.  Under the disjointness invariant duplicates cannot occur, but a
// corrupted store must not break the query: duplicates simply collapse in
// the union and are not repaired here.
func occupiedSet(ctx context.Context, q queryer, sessionID uint64) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seats FROM reservations WHERE session_id = ? AND kind = 'ACTIVE'`, sessionID)
	if err != nil {
		return nil, asTransient(err)
	}
	defer rows.Close()
	occupied := make(map[string]bool)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var seats []string
		if err := json.Unmarshal(raw, &seats); err != nil {
			return nil, fmt.Errorf("malformed seat list in reservation: %w", err)
		}
		for _, s := range seats {
			occupied[s] = true
		}
	}
	return occupied, rows.Err()
}

// OccupiedSeats returns the seats currently held by ACTIVE reservations for
// a session, sorted by row and column.  ErrSessionNotFound is returned when
// the session does not exist.
func (r *ReservationRepo) OccupiedSeats(ctx context.Context, sessionID uint64) ([]string, error) {
	if _, _, err := sessionGeometry(ctx, r.db, sessionID, false); err != nil {
		return nil, err
	}
	set, err := occupiedSet(ctx, r.db, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	seatmap.SortLabels(out)
	return out, nil
}

// Availability generates the session's full seat grid with an occupied flag
// per seat.  A stored geometry the seat scheme cannot address is reported
// as ErrInvalidSession: it is an administrator-facing configuration fault.
func (r *ReservationRepo) Availability(ctx context.Context, sessionID uint64) ([]SeatAvailability, error) {
	rows, cols, err := sessionGeometry(ctx, r.db, sessionID, false)
	if err != nil {
		return nil, err
	}
	all, err := seatmap.EnumerateSeats(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrInvalidSession)
	}
	occupied, err := occupiedSet(ctx, r.db, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]SeatAvailability, 0, len(all))
	for _, s := range all {
		out = append(out, SeatAvailability{ID: s, Occupied: occupied[s]})
	}
	return out, nil
}

// Occupancy computes the occupancy metric for a session.  Zero-capacity
// grids are guarded and reported as ErrInvalidSession instead of dividing
// by zero.
func (r *ReservationRepo) Occupancy(ctx context.Context, sessionID uint64) (*Occupancy, error) {
	rows, cols, err := sessionGeometry(ctx, r.db, sessionID, false)
	if err != nil {
		return nil, err
	}
	total := rows * cols
	if total <= 0 {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrInvalidSession)
	}
	occupied, err := occupiedSet(ctx, r.db, sessionID)
	if err != nil {
		return nil, err
	}
	n := len(occupied)
	return &Occupancy{
		TotalSeats:     total,
		OccupiedSeats:  n,
		AvailableSeats: total - n,
		Percent:        int(float64(n)/float64(total)*100 + 0.5),
	}, nil
}

// Create runs the booking transaction.  Precondition failures are returned
// in order: ErrSessionNotFound, then ErrInvalidSeat for seats outside the
// grid, then *SeatConflictError for seats already occupied.  The occupancy
// check and the inserts execute inside one transaction with the session row
// locked, and the unique key on reservation_seats rejects any overlap that
// would slip past the check, so two overlapping bookings can never both
// commit.
func (r *ReservationRepo) Create(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	seats := seatmap.Dedupe(req.Seats)
	if len(seats) == 0 {
		return nil, fmt.Errorf("no seats requested: %w", ErrInvalidSeat)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, asTransient(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, cols, err := sessionGeometry(ctx, tx, req.SessionID, true)
	if err != nil {
		return nil, err
	}

	var invalid []string
	for _, s := range seats {
		if !seatmap.Contains(rows, cols, s) {
			invalid = append(invalid, s)
		}
	}
	if len(invalid) > 0 {
		seatmap.SortLabels(invalid)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeat, invalid)
	}

	occupied, err := occupiedSet(ctx, tx, req.SessionID)
	if err != nil {
		return nil, err
	}
	var conflicts []string
	for _, s := range seats {
		if occupied[s] {
			conflicts = append(conflicts, s)
		}
	}
	if len(conflicts) > 0 {
		seatmap.SortLabels(conflicts)
		return nil, &SeatConflictError{Seats: conflicts}
	}

	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (session_id, seats, party_size, kind, customer_name, customer_email)
         VALUES (?, ?, ?, 'ACTIVE', ?, ?)`,
		req.SessionID, seatsJSON, len(seats), req.CustomerName, req.CustomerEmail)
	if err != nil {
		return nil, asTransient(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := insertSeatRows(ctx, tx, uint64(id), req.SessionID, seats); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			// Lost a race the session-row lock did not cover.  The
			// competitor's rows are not visible inside this transaction, so
			// the contested label is recovered from the error message; the
			// full request is the fallback upper bound.
			if label, ok := dupEntrySeat(me.Message); ok {
				return nil, &SeatConflictError{Seats: []string{label}}
			}
			return nil, &SeatConflictError{Seats: seats}
		}
		return nil, asTransient(err)
	}

	created, err := scanReservationTx(ctx, tx, uint64(id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, asTransient(err)
	}
	committed = true
	return created, nil
}

// dupEntrySeat extracts the seat label from a MySQL duplicate-entry
// message.  The uq_session_seat key value reads `<session_id>-<label>`
// (e.g. "Duplicate entry '3-A2' for key 'uq_session_seat'"); session ids
// and labels never contain a dash, so everything after the first one is
// the label.
func dupEntrySeat(msg string) (string, bool) {
	open := strings.Index(msg, "'")
	if open < 0 {
		return "", false
	}
	end := strings.Index(msg[open+1:], "'")
	if end < 0 {
		return "", false
	}
	entry := msg[open+1 : open+1+end]
	dash := strings.Index(entry, "-")
	if dash < 0 {
		return "", false
	}
	label := entry[dash+1:]
	if _, _, ok := seatmap.Parse(label); !ok {
		return "", false
	}
	return label, true
}

// insertSeatRows claims one reservation_seats row per seat in a single
// statement.  The unique key (session_id, seat_label) is the store-level
// double-booking guard.
func insertSeatRows(ctx context.Context, tx *sql.Tx, reservationID, sessionID uint64, seats []string) error {
	query := `INSERT INTO reservation_seats (reservation_id, session_id, seat_label) VALUES `
	args := make([]any, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, reservationID, sessionID, s)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

const reservationColumns = `id, session_id, seats, party_size, kind, customer_name, customer_email, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var m model.Reservation
	var raw []byte
	var email sql.NullString
	if err := row.Scan(&m.ID, &m.SessionID, &raw, &m.PartySize, &m.Kind,
		&m.CustomerName, &email, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &m.Seats); err != nil {
		return nil, fmt.Errorf("malformed seat list in reservation %d: %w", m.ID, err)
	}
	if email.Valid {
		e := email.String
		m.CustomerEmail = &e
	}
	return &m, nil
}

func scanReservationTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// GetByID fetches a single reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	m, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return m, err
}

// Cancel transitions a reservation from ACTIVE to CANCELLED, bumps its
// updated_at and releases its reservation_seats rows so the seats become
// immediately rebookable.  Cancelling an already-cancelled reservation
// fails with ErrAlreadyCancelled and leaves the record untouched.  The
// whole seat set is always released together.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, asTransient(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var kind model.ReservationKind
	err = tx.QueryRowContext(ctx,
		`SELECT kind FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, asTransient(err)
	}
	if kind == model.ReservationCancelled {
		return nil, ErrAlreadyCancelled
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET kind = 'CANCELLED', updated_at = UTC_TIMESTAMP() WHERE id = ?`, id); err != nil {
		return nil, asTransient(err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reservation_seats WHERE reservation_id = ?`, id); err != nil {
		return nil, asTransient(err)
	}

	cancelled, err := scanReservationTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, asTransient(err)
	}
	committed = true
	return cancelled, nil
}

const reservationDetailQuery = `SELECT r.id, r.session_id, r.seats, r.party_size, r.kind,
              r.customer_name, r.customer_email, r.created_at, r.updated_at,
              s.starts_at, s.room, s.price_cents, m.title
       FROM reservations r
       JOIN sessions s ON s.id = r.session_id
       JOIN movies m ON m.id = s.movie_id`

func collectDetails(rows *sql.Rows) ([]ReservationDetail, error) {
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var raw []byte
		var email sql.NullString
		if err := rows.Scan(&d.ID, &d.SessionID, &raw, &d.PartySize, &d.Kind,
			&d.CustomerName, &email, &d.CreatedAt, &d.UpdatedAt,
			&d.SessionStartsAt, &d.Room, &d.PriceCents, &d.MovieTitle); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &d.Seats); err != nil {
			return nil, fmt.Errorf("malformed seat list in reservation %d: %w", d.ID, err)
		}
		if email.Valid {
			e := email.String
			d.CustomerEmail = &e
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAll returns every reservation (active and cancelled) with session and
// movie context, newest first.  Used by the admin back office.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, reservationDetailQuery+` ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, asTransient(err)
	}
	return collectDetails(rows)
}

// ListBySession returns all reservations for one session, newest first.
func (r *ReservationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		reservationDetailQuery+` WHERE r.session_id = ? ORDER BY r.created_at DESC`, sessionID)
	if err != nil {
		return nil, asTransient(err)
	}
	return collectDetails(rows)
}

// ListActiveByEmail returns a customer's ACTIVE reservations, newest first.
func (r *ReservationRepo) ListActiveByEmail(ctx context.Context, email string) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		reservationDetailQuery+` WHERE r.customer_email = ? AND r.kind = 'ACTIVE' ORDER BY r.created_at DESC`, email)
	if err != nil {
		return nil, asTransient(err)
	}
	return collectDetails(rows)
}

// Revenue reports tickets sold and gross revenue for a session, counting
// ACTIVE reservations only.
func (r *ReservationRepo) Revenue(ctx context.Context, sessionID uint64) (*RevenueReport, error) {
	var price uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT price_cents FROM sessions WHERE id = ?`, sessionID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, asTransient(err)
	}
	var tickets int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(party_size), 0) FROM reservations WHERE session_id = ? AND kind = 'ACTIVE'`,
		sessionID).Scan(&tickets); err != nil {
		return nil, asTransient(err)
	}
	return &RevenueReport{
		Tickets:        tickets,
		UnitPriceCents: price,
		RevenueCents:   uint64(tickets) * uint64(price),
	}, nil
}

// DailyRevenue aggregates one day of booking activity.  Days are keyed by
// when the reservation was made, not when its session runs.
type DailyRevenue struct {
	Date         string `json:"date"`
	Reservations int    `json:"reservations"`
	Tickets      int    `json:"tickets"`
	RevenueCents uint64 `json:"revenue_cents"`
}

// RevenueByDay sums tickets and revenue of ACTIVE reservations created
// inside [from, to), grouped by creation day.  Days without bookings are
// absent from the result; callers fill the gaps.
func (r *ReservationRepo) RevenueByDay(ctx context.Context, from, to time.Time) ([]DailyRevenue, error) {
	const q = `SELECT DATE(r.created_at),
                      COUNT(*),
                      COALESCE(SUM(r.party_size), 0),
                      COALESCE(SUM(r.party_size * s.price_cents), 0)
               FROM reservations r
               JOIN sessions s ON s.id = r.session_id
               WHERE r.kind = 'ACTIVE' AND r.created_at >= ? AND r.created_at < ?
               GROUP BY DATE(r.created_at)
               ORDER BY DATE(r.created_at)`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, asTransient(err)
	}
	defer rows.Close()
	out := make([]DailyRevenue, 0)
	for rows.Next() {
		var d DailyRevenue
		var day time.Time // DATE() comes back as time.Time under parseTime=true
		if err := rows.Scan(&day, &d.Reservations, &d.Tickets, &d.RevenueCents); err != nil {
			return nil, err
		}
		d.Date = day.Format("2006-01-02")
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountActiveBetween returns the number of ACTIVE reservations created
// inside [from, to).  Used by the dashboard.
func (r *ReservationRepo) CountActiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE kind = 'ACTIVE' AND created_at >= ? AND created_at < ?`,
		from.UTC(), to.UTC()).Scan(&n)
	return n, err
}
