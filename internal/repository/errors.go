// Package repository implements data access for movies, sessions and
// reservations on top of database/sql.  The sentinel values defined here
// allow handlers to distinguish failure scenarios and map each one to a
// specific HTTP response; none of them is an unexpected fault.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrAlreadyCancelled is returned when cancelling a reservation that has
// already transitioned to CANCELLED.  Re-cancellation is rejected, not
// idempotent; the record is left untouched.
var ErrAlreadyCancelled = errors.New("reservation already cancelled")

// ErrInvalidSession is returned when a session's stored geometry yields a
// zero-capacity seat grid.  Such sessions are a configuration fault and
// should never have been made bookable.
var ErrInvalidSession = errors.New("invalid session geometry")

// ErrInvalidSeat is returned when a requested seat identifier does not
// address a seat inside the session's grid.
var ErrInvalidSeat = errors.New("invalid seat")

// ErrTransient marks infrastructure faults (store unreachable, transaction
// timeout) that are safe to retry.  It is always wrapped around the
// underlying error.
var ErrTransient = errors.New("transient storage error")

// SeatConflictError reports a booking attempt whose seats intersect the
// current occupancy.  Seats carries the offending identifiers so the client
// can highlight them and ask the user to re-select.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already occupied: %s", strings.Join(e.Seats, ", "))
}
