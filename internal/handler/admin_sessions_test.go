package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cineflow/cineflow/internal/repository"
)

func newAdminHandler(t *testing.T) (*AdminHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAdminHandler(
		repository.NewMovieRepo(db),
		repository.NewSessionRepo(db),
		repository.NewReservationRepo(db),
		nil,
	), mock
}

func TestCreateSessionRejectsBadGeometry(t *testing.T) {
	h, _ := newAdminHandler(t)

	cases := []struct{ rows, cols int }{
		{2, 10},  // too few rows
		{16, 10}, // too many rows
		{5, 4},   // too few columns
		{5, 21},  // too many columns
	}
	for _, tc := range cases {
		body := fmt.Sprintf(`{"movie_id":1,"room":"1","starts_at":"2025-06-01T20:00:00Z","seat_rows":%d,"seat_cols":%d}`,
			tc.rows, tc.cols)
		rec := request(t, h.CreateSession, http.MethodPost, "/v1/admin/sessions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "rows=%d cols=%d", tc.rows, tc.cols)
	}
}

func TestCreateSessionRequiresExistingMovie(t *testing.T) {
	h, mock := newAdminHandler(t)

	mock.ExpectQuery(`FROM movies WHERE id = \?`).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := request(t, h.CreateSession, http.MethodPost, "/v1/admin/sessions",
		`{"movie_id":99,"room":"1","starts_at":"2025-06-01T20:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionRejectsBadStartTime(t *testing.T) {
	h, _ := newAdminHandler(t)
	rec := request(t, h.CreateSession, http.MethodPost, "/v1/admin/sessions",
		`{"movie_id":1,"room":"1","starts_at":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
