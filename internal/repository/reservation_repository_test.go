package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cineflow/cineflow/internal/model"
)

func newMock(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReservationRepo(db), mock
}

const (
	geometryQuery          = `SELECT seat_rows, seat_cols FROM sessions WHERE id = \?`
	geometryForUpdateQuery = `SELECT seat_rows, seat_cols FROM sessions WHERE id = \? FOR UPDATE`
	occupiedQuery          = `SELECT seats FROM reservations WHERE session_id = \? AND kind = 'ACTIVE'`
)

func geometryRows(rows, cols int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"seat_rows", "seat_cols"}).AddRow(rows, cols)
}

func occupiedRows(seatJSON ...string) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"seats"})
	for _, s := range seatJSON {
		r.AddRow([]byte(s))
	}
	return r
}

func reservationRow(id uint64, seatJSON string, partySize int, kind string) *sqlmock.Rows {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "session_id", "seats", "party_size", "kind",
		"customer_name", "customer_email", "created_at", "updated_at",
	}).AddRow(id, 1, []byte(seatJSON), partySize, kind, "Maria", nil, now, now)
}

func TestOccupancyEmptySession(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())

	occ, err := repo.Occupancy(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &Occupancy{TotalSeats: 50, OccupiedSeats: 0, AvailableSeats: 50, Percent: 0}, occ)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyCountsUnion(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	// A2 appears twice: a data-integrity fault the query tolerates by
	// reporting the union, not the sum.
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).
		WillReturnRows(occupiedRows(`["A1","A2"]`, `["A2","B1"]`))

	occ, err := repo.Occupancy(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, occ.OccupiedSeats)
	assert.Equal(t, 47, occ.AvailableSeats)
	assert.Equal(t, 6, occ.Percent) // round(100*3/50)
}

func TestOccupancyZeroCapacity(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(0, 10))

	_, err := repo.Occupancy(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestOccupiedSeatsSessionNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_rows", "seat_cols"}))

	_, err := repo.OccupiedSeats(context.Background(), 9)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOccupiedSeatsSorted(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).
		WillReturnRows(occupiedRows(`["B1","A10","A2"]`))

	seats, err := repo.OccupiedSeats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A10", "B1"}, seats)
}

func TestAvailabilityFlagsOccupiedSeats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(3, 5))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows(`["A1","C5"]`))

	avail, err := repo.Availability(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, avail, 15)
	assert.Equal(t, SeatAvailability{ID: "A1", Occupied: true}, avail[0])
	assert.Equal(t, SeatAvailability{ID: "A2", Occupied: false}, avail[1])
	assert.Equal(t, SeatAvailability{ID: "C5", Occupied: true}, avail[14])
}

func TestCreateReservation(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WithArgs(uint64(1), []byte(`["A1","A2"]`), 2, "Maria", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WithArgs(uint64(7), uint64(1), "A1", uint64(7), uint64(1), "A2").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(`SELECT id, session_id, seats, party_size, kind, customer_name, customer_email, created_at, updated_at FROM reservations WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(reservationRow(7, `["A1","A2"]`, 2, "ACTIVE"))
	mock.ExpectCommit()

	res, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"A1", "A2"},
		CustomerName: "Maria",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.ID)
	assert.Equal(t, 2, res.PartySize)
	assert.Equal(t, model.ReservationActive, res.Kind)
	assert.Equal(t, []string{"A1", "A2"}, res.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDedupesSeats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WithArgs(uint64(1), []byte(`["A1","A2"]`), 2, "Maria", nil).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WithArgs(uint64(8), uint64(1), "A1", uint64(8), uint64(1), "A2").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(8)).
		WillReturnRows(reservationRow(8, `["A1","A2"]`, 2, "ACTIVE"))
	mock.ExpectCommit()

	res, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"A1", "A1", "A2"},
		CustomerName: "Maria",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PartySize)
}

func TestCreateSessionNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_rows", "seat_cols"}))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    9,
		Seats:        []string{"A1"},
		CustomerName: "Maria",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvalidSeat(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectRollback()

	// F1 is outside a 5-row grid, A11 outside a 10-column grid.
	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"F1", "A11"},
		CustomerName: "Maria",
	})
	assert.ErrorIs(t, err, ErrInvalidSeat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSeatConflict(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows(`["A1","A2"]`))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"A2", "A3"},
		CustomerName: "João",
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)
	// No INSERT was ever attempted: store state is unchanged.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateKeyRaceBecomesConflict(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(9, 1))
	// A competing transaction committed C5 first: the unique key rejects us
	// and the contested label is recovered from the error message.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-C5' for key 'uq_session_seat'"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"C5", "C6"},
		CustomerName: "Ana",
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"C5"}, conflict.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateKeyUnparsableNamesAllSeats(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"C5", "C6"},
		CustomerName: "Ana",
	})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"C5", "C6"}, conflict.Seats)
}

func TestDupEntrySeat(t *testing.T) {
	label, ok := dupEntrySeat("Duplicate entry '12-B10' for key 'reservation_seats.uq_session_seat'")
	require.True(t, ok)
	assert.Equal(t, "B10", label)

	_, ok = dupEntrySeat("Duplicate entry '12' for key 'PRIMARY'")
	assert.False(t, ok)
	_, ok = dupEntrySeat("malformed")
	assert.False(t, ok)
}

func TestCreateTimeoutBecomesTransient(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"A1"},
		CustomerName: "Ana",
	})
	assert.ErrorIs(t, err, ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenueByDayGroupsByCreationDay(t *testing.T) {
	repo, mock := newMock(t)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery(`GROUP BY DATE\(r.created_at\)`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"day", "reservations", "tickets", "revenue"}).
			AddRow(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 3, 8, 20000).
			AddRow(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), 1, 2, 5000))

	days, err := repo.RevenueByDay(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, DailyRevenue{Date: "2025-06-02", Reservations: 3, Tickets: 8, RevenueCents: 20000}, days[0])
	assert.Equal(t, "2025-06-04", days[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupancyTimeoutBecomesTransient(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(geometryQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.Occupancy(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTransient)
}

func TestCancelReservation(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("ACTIVE"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reservations SET kind = 'CANCELLED'`)).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reservation_seats WHERE reservation_id = ?`)).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(7)).
		WillReturnRows(reservationRow(7, `["A1","A2"]`, 2, "CANCELLED"))
	mock.ExpectCommit()

	res, err := repo.Cancel(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, res.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAlreadyCancelled(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("CANCELLED"))
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), 7)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	// No UPDATE ran: timestamps and seats are untouched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}))
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), 404)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestCancelThenRebook(t *testing.T) {
	repo, mock := newMock(t)

	// Cancel frees A1/A2.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT kind FROM reservations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"kind"}).AddRow("ACTIVE"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reservations SET kind = 'CANCELLED'`)).
		WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reservation_seats`)).
		WithArgs(uint64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(7)).
		WillReturnRows(reservationRow(7, `["A1","A2"]`, 2, "CANCELLED"))
	mock.ExpectCommit()

	// Rebooking exactly those seats now succeeds: the cancelled
	// reservation no longer contributes to occupancy.
	mock.ExpectBegin()
	mock.ExpectQuery(geometryForUpdateQuery).WithArgs(uint64(1)).WillReturnRows(geometryRows(5, 10))
	mock.ExpectQuery(occupiedQuery).WithArgs(uint64(1)).WillReturnRows(occupiedRows())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservation_seats`)).
		WillReturnResult(sqlmock.NewResult(3, 2))
	mock.ExpectQuery(`FROM reservations WHERE id = \?`).WithArgs(uint64(8)).
		WillReturnRows(reservationRow(8, `["A1","A2"]`, 2, "ACTIVE"))
	mock.ExpectCommit()

	_, err := repo.Cancel(context.Background(), 7)
	require.NoError(t, err)

	res, err := repo.Create(context.Background(), BookingRequest{
		SessionID:    1,
		Seats:        []string{"A1", "A2"},
		CustomerName: "Maria",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, res.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevenue(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT price_cents FROM sessions WHERE id = \?`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}).AddRow(2500))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(party_size), 0) FROM reservations`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"tickets"}).AddRow(6))

	rep, err := repo.Revenue(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &RevenueReport{Tickets: 6, UnitPriceCents: 2500, RevenueCents: 15000}, rep)
}
