package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMovieMock(t *testing.T) (*MovieRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMovieRepo(db), mock
}

func movieRows(titles ...string) *sqlmock.Rows {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := sqlmock.NewRows([]string{
		"id", "title", "synopsis", "duration_min", "genre", "rating",
		"poster_url", "is_active", "created_at", "updated_at",
	})
	for i, title := range titles {
		r.AddRow(uint64(i+1), title, "synopsis", 120, "Drama", "12", nil, true, now, now)
	}
	return r
}

func TestListByGenreMatchesSubstring(t *testing.T) {
	repo, mock := newMovieMock(t)
	mock.ExpectQuery(`FROM movies WHERE genre LIKE \? ORDER BY title`).
		WithArgs("%com%").
		WillReturnRows(movieRows("A Comedy", "Romantic Comedy"))

	movies, err := repo.ListByGenre(context.Background(), "com")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "A Comedy", movies[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByGenreEmptyResult(t *testing.T) {
	repo, mock := newMovieMock(t)
	mock.ExpectQuery(`FROM movies WHERE genre LIKE \?`).
		WithArgs("%western%").
		WillReturnRows(movieRows())

	movies, err := repo.ListByGenre(context.Background(), "western")
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestTopByTicketsRanksMovies(t *testing.T) {
	repo, mock := newMovieMock(t)
	mock.ExpectQuery(`LEFT JOIN sessions s ON s.movie_id = m.id`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "sessions", "reservations", "tickets", "revenue",
		}).
			AddRow(3, "Blockbuster", 4, 10, 25, 62500).
			AddRow(1, "Sleeper Hit", 2, 3, 7, 17500))

	top, err := repo.TopByTickets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, MoviePopularity{
		MovieID: 3, Title: "Blockbuster", Sessions: 4,
		Reservations: 10, Tickets: 25, RevenueCents: 62500,
	}, top[0])
	assert.Equal(t, 7, top[1].Tickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}
