package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cineflow/cineflow/internal/model"
)

// MovieRepo provides CRUD operations for the movies table.  Movies are
// soft-deactivated: Deactivate flips is_active instead of deleting, so
// sessions referencing a movie never dangle.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a new MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *MovieRepo) DB() *sql.DB { return r.db }

const movieColumns = `id, title, synopsis, duration_min, genre, rating, poster_url, is_active, created_at, updated_at`

func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var m model.Movie
	var poster sql.NullString
	if err := row.Scan(&m.ID, &m.Title, &m.Synopsis, &m.DurationMin, &m.Genre, &m.Rating,
		&poster, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if poster.Valid {
		p := poster.String
		m.PosterURL = &p
	}
	return &m, nil
}

// Create inserts a new movie and returns it with timestamps populated.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) (*model.Movie, error) {
	const q = `INSERT INTO movies (title, synopsis, duration_min, genre, rating, poster_url)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Synopsis, m.DurationMin, m.Genre, m.Rating, m.PosterURL)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a single movie.  ErrMovieNotFound is returned when the id
// does not exist.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	m, err := scanMovie(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	return m, err
}

// ListActive returns all active movies ordered by title.
func (r *MovieRepo) ListActive(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE is_active = 1 ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ListByGenre returns movies whose genre contains the given fragment,
// case-insensitively, ordered by title.  Matching follows the genre search
// of the back office: inactive movies are not filtered out.
func (r *MovieRepo) ListByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE genre LIKE ? ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q, "%"+genre+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MoviePopularity aggregates a movie's booking figures across all of its
// sessions, counting ACTIVE reservations only.
type MoviePopularity struct {
	MovieID      uint64 `json:"movie_id"`
	Title        string `json:"title"`
	Sessions     int    `json:"sessions"`
	Reservations int    `json:"reservations"`
	Tickets      int    `json:"tickets"`
	RevenueCents uint64 `json:"revenue_cents"`
}

// TopByTickets ranks movies by tickets sold and returns the first limit
// entries.  Movies without sessions or bookings still appear, with zeroes.
func (r *MovieRepo) TopByTickets(ctx context.Context, limit int) ([]MoviePopularity, error) {
	const q = `SELECT m.id, m.title,
                      COUNT(DISTINCT s.id),
                      COUNT(r.id),
                      COALESCE(SUM(r.party_size), 0),
                      COALESCE(SUM(r.party_size * s.price_cents), 0)
               FROM movies m
               LEFT JOIN sessions s ON s.movie_id = m.id
               LEFT JOIN reservations r ON r.session_id = s.id AND r.kind = 'ACTIVE'
               GROUP BY m.id, m.title
               ORDER BY COALESCE(SUM(r.party_size), 0) DESC, m.title
               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MoviePopularity, 0, limit)
	for rows.Next() {
		var p MoviePopularity
		if err := rows.Scan(&p.MovieID, &p.Title, &p.Sessions, &p.Reservations, &p.Tickets, &p.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of a movie.  ErrMovieNotFound is
// returned when the id does not exist.
func (r *MovieRepo) Update(ctx context.Context, id uint64, m *model.Movie) (*model.Movie, error) {
	const q = `UPDATE movies SET title = ?, synopsis = ?, duration_min = ?, genre = ?, rating = ?, poster_url = ?
               WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Synopsis, m.DurationMin, m.Genre, m.Rating, m.PosterURL, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is 0 for both a missing row and a no-op update, so
		// confirm existence before reporting not-found.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
	}
	return r.GetByID(ctx, id)
}

// Deactivate soft-deletes a movie by clearing its is_active flag.
func (r *MovieRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE movies SET is_active = 0 WHERE id = ?`, id)
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

// Count returns the total number of movies, used by the dashboard.
func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, err
}
