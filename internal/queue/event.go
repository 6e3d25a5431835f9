// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the reservation.events queue.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published when a reservation is created or cancelled.
// It carries enough context for downstream consumers to log, notify, or feed
// analytics without querying the primary database.
type ReservationEvent struct {
	Type          string   `json:"type"`
	ReservationID uint64   `json:"reservation_id"`
	SessionID     uint64   `json:"session_id"`
	MovieTitle    string   `json:"movie_title"`
	Room          string   `json:"room"`
	StartsAt      string   `json:"starts_at"`
	Seats         []string `json:"seats"`
	PartySize     int      `json:"party_size"`
	CustomerName  string   `json:"customer_name,omitempty"`
	CustomerEmail string   `json:"customer_email,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}
