package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cineflow/cineflow/internal/model"
)

// SessionRepo provides persistence for scheduled screenings.  Like movies,
// sessions are soft-deactivated rather than deleted once reservations
// reference them.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, movie_id, starts_at, room, seat_rows, seat_cols, price_cents, is_active, created_at, updated_at`

// SessionDetail joins a session with the movie it screens; the public
// listing and admin views both render sessions together with their movie.
type SessionDetail struct {
	model.Session
	MovieTitle  string       `json:"movie_title"`
	MovieRating model.Rating `json:"movie_rating"`
}

// SessionStats extends a session with its aggregated occupancy and revenue
// figures, computed over ACTIVE reservations only.
type SessionStats struct {
	SessionDetail
	OccupiedSeats    int    `json:"occupied_seats"`
	TotalSeats       int    `json:"total_seats"`
	OccupancyPercent int    `json:"occupancy_percent"`
	Reservations     int    `json:"reservations"`
	RevenueCents     uint64 `json:"revenue_cents"`
}

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	if err := row.Scan(&s.ID, &s.MovieID, &s.StartsAt, &s.Room, &s.SeatRows, &s.SeatCols,
		&s.PriceCents, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session and returns it with timestamps populated.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) (*model.Session, error) {
	const q = `INSERT INTO sessions (movie_id, starts_at, room, seat_rows, seat_cols, price_cents)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.StartsAt.UTC(), s.Room, s.SeatRows, s.SeatCols, s.PriceCents)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a single session.  ErrSessionNotFound is returned when
// the id does not exist.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetDetail fetches a session together with its movie title and rating.
func (r *SessionRepo) GetDetail(ctx context.Context, id uint64) (*SessionDetail, error) {
	const q = `SELECT s.id, s.movie_id, s.starts_at, s.room, s.seat_rows, s.seat_cols,
                      s.price_cents, s.is_active, s.created_at, s.updated_at,
                      m.title, m.rating
               FROM sessions s
               JOIN movies m ON m.id = s.movie_id
               WHERE s.id = ?`
	var d SessionDetail
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.MovieID, &d.StartsAt, &d.Room, &d.SeatRows, &d.SeatCols,
		&d.PriceCents, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		&d.MovieTitle, &d.MovieRating,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListBetween returns active sessions starting inside [from, to), joined
// with their movie and ordered by start time.  Pass zero times to leave
// either bound open.
func (r *SessionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]SessionDetail, error) {
	q := `SELECT s.id, s.movie_id, s.starts_at, s.room, s.seat_rows, s.seat_cols,
                 s.price_cents, s.is_active, s.created_at, s.updated_at,
                 m.title, m.rating
          FROM sessions s
          JOIN movies m ON m.id = s.movie_id
          WHERE s.is_active = 1`
	args := make([]any, 0, 2)
	if !from.IsZero() {
		q += ` AND s.starts_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		q += ` AND s.starts_at < ?`
		args = append(args, to.UTC())
	}
	q += ` ORDER BY s.starts_at`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SessionDetail, 0)
	for rows.Next() {
		var d SessionDetail
		if err := rows.Scan(
			&d.ID, &d.MovieID, &d.StartsAt, &d.Room, &d.SeatRows, &d.SeatCols,
			&d.PriceCents, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&d.MovieTitle, &d.MovieRating,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListUpcomingByMovie returns the active sessions of a movie that start at
// or after the given instant.
func (r *SessionRepo) ListUpcomingByMovie(ctx context.Context, movieID uint64, after time.Time) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions
               WHERE movie_id = ? AND is_active = 1 AND starts_at >= ?
               ORDER BY starts_at`
	rows, err := r.db.QueryContext(ctx, q, movieID, after.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of a session.
func (r *SessionRepo) Update(ctx context.Context, id uint64, s *model.Session) (*model.Session, error) {
	const q = `UPDATE sessions SET movie_id = ?, starts_at = ?, room = ?, seat_rows = ?, seat_cols = ?, price_cents = ?
               WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.MovieID, s.StartsAt.UTC(), s.Room, s.SeatRows, s.SeatCols, s.PriceCents, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
	}
	return r.GetByID(ctx, id)
}

// Deactivate soft-deletes a session by clearing its is_active flag.
func (r *SessionRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// Count returns the total number of sessions.
func (r *SessionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// CountBetween returns the number of sessions starting inside [from, to).
func (r *SessionRepo) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE starts_at >= ? AND starts_at < ?`,
		from.UTC(), to.UTC()).Scan(&n)
	return n, err
}

// ListStats aggregates occupancy and revenue per session over ACTIVE
// reservations, optionally restricted to sessions starting inside
// [from, to).  OccupiedSeats sums party sizes, which equals the size of the
// union of seat sets while the disjointness invariant holds.  Sessions with
// a zero-capacity grid report 0% rather than dividing by zero.
func (r *SessionRepo) ListStats(ctx context.Context, from, to time.Time) ([]SessionStats, error) {
	q := `SELECT s.id, s.movie_id, s.starts_at, s.room, s.seat_rows, s.seat_cols,
                 s.price_cents, s.is_active, s.created_at, s.updated_at,
                 m.title, m.rating,
                 COALESCE(SUM(r.party_size), 0), COUNT(r.id)
          FROM sessions s
          JOIN movies m ON m.id = s.movie_id
          LEFT JOIN reservations r ON r.session_id = s.id AND r.kind = 'ACTIVE'`
	args := make([]any, 0, 2)
	where := ""
	if !from.IsZero() {
		where += ` AND s.starts_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where += ` AND s.starts_at < ?`
		args = append(args, to.UTC())
	}
	if where != "" {
		q += ` WHERE 1=1` + where
	}
	q += ` GROUP BY s.id ORDER BY s.starts_at`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SessionStats, 0)
	for rows.Next() {
		var st SessionStats
		if err := rows.Scan(
			&st.ID, &st.MovieID, &st.StartsAt, &st.Room, &st.SeatRows, &st.SeatCols,
			&st.PriceCents, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
			&st.MovieTitle, &st.MovieRating,
			&st.OccupiedSeats, &st.Reservations,
		); err != nil {
			return nil, err
		}
		st.TotalSeats = st.SeatRows * st.SeatCols
		if st.TotalSeats > 0 {
			st.OccupancyPercent = int(float64(st.OccupiedSeats)/float64(st.TotalSeats)*100 + 0.5)
		}
		st.RevenueCents = uint64(st.OccupiedSeats) * uint64(st.PriceCents)
		out = append(out, st)
	}
	return out, rows.Err()
}
