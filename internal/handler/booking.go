package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/middleware"
	"github.com/cineflow/cineflow/internal/queue"
	"github.com/cineflow/cineflow/internal/repository"
	queue_publisher "github.com/cineflow/cineflow/internal/service"
)

// BookingHandler owns the reservation lifecycle: creation, cancellation and
// customer lookup.  Write operations run under a bounded timeout, bust the
// listing cache and emit a broker event; only the database write is on the
// critical path.
type BookingHandler struct {
	SessionRepo     *repository.SessionRepo
	ReservationRepo *repository.ReservationRepo
	Invalidator     *middleware.Invalidator
	Timeout         time.Duration
	PublishEvents   bool
}

// NewBookingHandler constructs a BookingHandler.  Invalidator may be nil
// when Redis is unavailable; timeout falls back to five seconds when
// non-positive.
func NewBookingHandler(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, inv *middleware.Invalidator, timeout time.Duration, publishEvents bool) *BookingHandler {
	if sessions == nil || reservations == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BookingHandler{
		SessionRepo:     sessions,
		ReservationRepo: reservations,
		Invalidator:     inv,
		Timeout:         timeout,
		PublishEvents:   publishEvents,
	}
}

// CreateReservation handles POST /v1/sessions/:id/reservations.  The body
// carries the requested seats and customer identification; the whole
// check-and-insert runs as one transaction in the repository.  On success
// it responds 201 with the stored reservation.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Seats         []string `json:"seats"`
		CustomerName  string   `json:"customer_name"`
		CustomerEmail *string  `json:"customer_email"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	body.CustomerName = strings.TrimSpace(body.CustomerName)
	if body.CustomerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name is required"})
	}
	if body.CustomerEmail != nil {
		trimmed := strings.TrimSpace(*body.CustomerEmail)
		if trimmed == "" {
			body.CustomerEmail = nil
		} else {
			body.CustomerEmail = &trimmed
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.ReservationRepo.Create(ctx, repository.BookingRequest{
		SessionID:     sessionID,
		Seats:         body.Seats,
		CustomerName:  body.CustomerName,
		CustomerEmail: body.CustomerEmail,
	})
	if err != nil {
		return repoError(c, err)
	}

	h.Invalidator.Bust(c.Request().Context(), "sessions", "admin")
	h.publish(queue.EventReservationCreated, res.ID)

	return c.JSON(http.StatusCreated, echo.Map{"reservation": res})
}

// CancelReservation handles POST /v1/reservations/:id/cancel.  Cancellation
// is idempotent from the seat map's point of view but a second call on the
// same reservation answers 409.
func (h *BookingHandler) CancelReservation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()

	res, err := h.ReservationRepo.Cancel(ctx, id)
	if err != nil {
		return repoError(c, err)
	}

	h.Invalidator.Bust(c.Request().Context(), "sessions", "admin")
	h.publish(queue.EventReservationCancelled, res.ID)

	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// ListByEmail handles GET /v1/reservations?email=.  It returns the
// customer's ACTIVE reservations joined with session and movie details.
func (h *BookingHandler) ListByEmail(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	items, err := h.ReservationRepo.ListActiveByEmail(c.Request().Context(), email)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// publish emits a reservation event in the background.  The event payload
// is assembled from a fresh read so it reflects the committed state; broker
// failures are logged and never surface to the customer.
func (h *BookingHandler) publish(eventType string, reservationID uint64) {
	if !h.PublishEvents {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := h.ReservationRepo.GetByID(ctx, reservationID)
		if err != nil {
			log.Printf("events: load reservation %d failed: %v", reservationID, err)
			return
		}
		detail, err := h.SessionRepo.GetDetail(ctx, res.SessionID)
		if err != nil {
			log.Printf("events: load session %d failed: %v", res.SessionID, err)
			return
		}
		ev := queue.ReservationEvent{
			Type:          eventType,
			ReservationID: res.ID,
			SessionID:     res.SessionID,
			MovieTitle:    detail.MovieTitle,
			Room:          detail.Room,
			StartsAt:      detail.StartsAt.UTC().Format(time.RFC3339),
			Seats:         res.Seats,
			PartySize:     res.PartySize,
			CustomerName:  res.CustomerName,
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if res.CustomerEmail != nil {
			ev.CustomerEmail = *res.CustomerEmail
		}
		_ = queue_publisher.PublishReservationEvent(ctx, ev)
	}()
}
