package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/model"
)

type sessionBody struct {
	MovieID    uint64 `json:"movie_id"`
	StartsAt   string `json:"starts_at"`
	Room       string `json:"room"`
	SeatRows   *int   `json:"seat_rows"`
	SeatCols   *int   `json:"seat_cols"`
	PriceCents uint32 `json:"price_cents"`
}

// toModel validates the body and converts it to a session.  Seat geometry
// defaults to a 5x10 room when omitted and must stay inside the business
// bounds otherwise.
func (b *sessionBody) toModel() (*model.Session, string) {
	if b.MovieID == 0 {
		return nil, "movie_id is required"
	}
	b.Room = strings.TrimSpace(b.Room)
	if b.Room == "" {
		return nil, "room is required"
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(b.StartsAt))
	if err != nil {
		return nil, "invalid starts_at, expected RFC 3339"
	}
	rows, cols := 5, 10
	if b.SeatRows != nil {
		rows = *b.SeatRows
	}
	if b.SeatCols != nil {
		cols = *b.SeatCols
	}
	if rows < model.MinSeatRows || rows > model.MaxSeatRows {
		return nil, "seat_rows out of range"
	}
	if cols < model.MinSeatCols || cols > model.MaxSeatCols {
		return nil, "seat_cols out of range"
	}
	return &model.Session{
		MovieID:    b.MovieID,
		StartsAt:   startsAt.UTC(),
		Room:       b.Room,
		SeatRows:   rows,
		SeatCols:   cols,
		PriceCents: b.PriceCents,
	}, ""
}

// CreateSession handles POST /v1/admin/sessions.  The referenced movie must
// exist; the seat grid is validated here so an unbookable session can never
// be created.
func (h *AdminHandler) CreateSession(c echo.Context) error {
	var body sessionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	s, msg := body.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	if _, err := h.MovieRepo.GetByID(ctx, s.MovieID); err != nil {
		return repoError(c, err)
	}
	created, err := h.SessionRepo.Create(ctx, s)
	if err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.JSON(http.StatusCreated, created)
}

// UpdateSession handles PUT /v1/admin/sessions/:id.  Geometry changes are
// allowed; shrinking a grid under seats that are already booked is the
// admin's responsibility and existing reservations are left untouched.
func (h *AdminHandler) UpdateSession(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body sessionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	s, msg := body.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	if _, err := h.MovieRepo.GetByID(ctx, s.MovieID); err != nil {
		return repoError(c, err)
	}
	updated, err := h.SessionRepo.Update(ctx, id, s)
	if err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.JSON(http.StatusOK, updated)
}

// DeleteSession handles DELETE /v1/admin/sessions/:id.  The session is
// deactivated, not removed, so its reservations stay auditable.
func (h *AdminHandler) DeleteSession(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.SessionRepo.Deactivate(c.Request().Context(), id); err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.NoContent(http.StatusNoContent)
}

// ListSessionReservations handles GET /v1/admin/sessions/:id/reservations.
func (h *AdminHandler) ListSessionReservations(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.SessionRepo.GetByID(ctx, id); err != nil {
		return repoError(c, err)
	}
	items, err := h.ReservationRepo.ListBySession(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SessionRevenue handles GET /v1/admin/sessions/:id/revenue.  Tickets count
// every seat of every ACTIVE reservation at the session's unit price.
func (h *AdminHandler) SessionRevenue(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	report, err := h.ReservationRepo.Revenue(c.Request().Context(), id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
