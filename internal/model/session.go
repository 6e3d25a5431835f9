package model

import "time"

// Business bounds for a session's seat grid.  Geometry outside these limits
// is rejected at creation time so that malformed sessions never become
// bookable.
const (
	MinSeatRows = 3
	MaxSeatRows = 15
	MinSeatCols = 5
	MaxSeatCols = 20
)

// Session represents a single scheduled screening of a movie in a room.
// Its seat universe is exactly SeatRows*SeatCols; seat identifiers are
// derived from the grid (row letter + column number, e.g. "B10").
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened.
//  StartsAt   – start timestamp (UTC).
//  Room       – room identifier within the cinema.
//  SeatRows   – number of seating rows.
//  SeatCols   – number of seats per row.
//  PriceCents – ticket price in cents.
//  IsActive   – whether the session is open for booking.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Session struct {
	ID         uint64    `json:"id"`
	MovieID    uint64    `json:"movie_id"`
	StartsAt   time.Time `json:"starts_at"`
	Room       string    `json:"room"`
	SeatRows   int       `json:"seat_rows"`
	SeatCols   int       `json:"seat_cols"`
	PriceCents uint32    `json:"price_cents"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TotalSeats returns the size of the session's seat universe.
func (s *Session) TotalSeats() int { return s.SeatRows * s.SeatCols }
