package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cineflow/cineflow/internal/repository"
)

const (
	geometryForUpdateQuery = `SELECT seat_rows, seat_cols FROM sessions WHERE id = \? FOR UPDATE`
	occupiedQuery          = `SELECT seats FROM reservations WHERE session_id = \? AND kind = 'ACTIVE'`
)

func newBookingHandler(t *testing.T) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingHandler(
		repository.NewSessionRepo(db),
		repository.NewReservationRepo(db),
		nil,
		time.Second,
		false,
	), mock
}

func request(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	require.NoError(t, h(c))
	return rec
}

func TestCreateReservationEndpoint(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_rows", "seat_cols"}).AddRow(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seats"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WithArgs(uint64(3), []byte(`["B1","B2"]`), 2, "Maria", nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WithArgs(uint64(11), uint64(3), "B1", uint64(11), uint64(3), "B2").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "seats", "party_size", "kind",
			"customer_name", "customer_email", "created_at", "updated_at",
		}).AddRow(11, 3, []byte(`["B1","B2"]`), 2, "ACTIVE", "Maria", nil, now, now))
	mock.ExpectCommit()

	rec := request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/3/reservations",
		`{"seats":["B1","B2"],"customer_name":"Maria"}`, "id", "3")

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Reservation struct {
			ID        uint64   `json:"id"`
			Seats     []string `json:"seats"`
			PartySize int      `json:"party_size"`
			Kind      string   `json:"kind"`
		} `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(11), resp.Reservation.ID)
	assert.Equal(t, []string{"B1", "B2"}, resp.Reservation.Seats)
	assert.Equal(t, "ACTIVE", resp.Reservation.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationConflictNamesSeats(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_rows", "seat_cols"}).AddRow(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow([]byte(`["A2","A3"]`)))
	mock.ExpectRollback()

	rec := request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/3/reservations",
		`{"seats":["A1","A2"],"customer_name":"Maria"}`, "id", "3")

	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Error            string   `json:"error"`
		ConflictingSeats []string `json:"conflicting_seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A2"}, resp.ConflictingSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
	h, _ := newBookingHandler(t)

	rec := request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/3/reservations",
		`{"seats":[],"customer_name":"Maria"}`, "id", "3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/3/reservations",
		`{"seats":["A1"],"customer_name":"  "}`, "id", "3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/abc/reservations",
		`{"seats":["A1"],"customer_name":"Maria"}`, "id", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservationInvalidSeatLabel(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_rows", "seat_cols"}).AddRow(5, 10))
	mock.ExpectRollback()

	rec := request(t, h.CreateReservation, http.MethodPost, "/v1/sessions/3/reservations",
		`{"seats":["Z9"],"customer_name":"Maria"}`, "id", "3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReservationEndpoint(t *testing.T) {
	h, mock := newBookingHandler(t)
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("ACTIVE"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reservations SET kind = 'CANCELLED'`)).
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reservation_seats`)).
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "seats", "party_size", "kind",
			"customer_name", "customer_email", "created_at", "updated_at",
		}).AddRow(11, 3, []byte(`["B1","B2"]`), 2, "CANCELLED", "Maria", nil, now, now))
	mock.ExpectCommit()

	rec := request(t, h.CancelReservation, http.MethodPost, "/v1/reservations/11/cancel", "", "id", "11")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"CANCELLED"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyCancelledEndpoint(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("CANCELLED"))
	mock.ExpectRollback()

	rec := request(t, h.CancelReservation, http.MethodPost, "/v1/reservations/11/cancel", "", "id", "11")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListByEmailRequiresEmail(t *testing.T) {
	h, _ := newBookingHandler(t)
	rec := request(t, h.ListByEmail, http.MethodGet, "/v1/reservations", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
