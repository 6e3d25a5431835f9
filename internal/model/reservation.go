package model

import "time"

// ReservationKind is the lifecycle state of a reservation.  A reservation is
// created ACTIVE and transitions to CANCELLED exactly once; records are kept
// for audit and never deleted.
type ReservationKind string

const (
	ReservationActive    ReservationKind = "ACTIVE"
	ReservationCancelled ReservationKind = "CANCELLED"
)

// Reservation records a customer's booking for a session.  Seats holds the
// seat identifiers claimed by this reservation; for any session the seat
// sets of all ACTIVE reservations are pairwise disjoint.  Seats, session
// and customer data are immutable after creation – the only permitted
// mutation is the ACTIVE -> CANCELLED transition.
//
// Fields:
//  ID            – primary key identifier.
//  SessionID     – session the seats belong to.
//  Seats         – seat identifiers, in the order they were requested.
//  PartySize     – number of seats (= len(Seats)).
//  Kind          – ACTIVE or CANCELLED.
//  CustomerName  – name given at booking time.
//  CustomerEmail – optional contact email.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last modification timestamp (bumped on cancellation).
type Reservation struct {
	ID            uint64          `json:"id"`
	SessionID     uint64          `json:"session_id"`
	Seats         []string        `json:"seats"`
	PartySize     int             `json:"party_size"`
	Kind          ReservationKind `json:"kind"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
