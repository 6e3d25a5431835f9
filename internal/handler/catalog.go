// This file defines the public browsing API: active movies, their upcoming
// sessions, and per-session seat availability.  These routes require no
// authentication and return only customer-facing fields.

package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/model"
	"github.com/cineflow/cineflow/internal/repository"
)

// CatalogHandler aggregates the repositories needed for public browsing.
type CatalogHandler struct {
	MovieRepo       *repository.MovieRepo
	SessionRepo     *repository.SessionRepo
	ReservationRepo *repository.ReservationRepo
}

// NewCatalogHandler constructs a CatalogHandler.  All dependencies must be
// non-nil.
func NewCatalogHandler(movies *repository.MovieRepo, sessions *repository.SessionRepo, reservations *repository.ReservationRepo) *CatalogHandler {
	if movies == nil || sessions == nil || reservations == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{MovieRepo: movies, SessionRepo: sessions, ReservationRepo: reservations}
}

// movieListing pairs a movie with its upcoming sessions for the catalogue
// listing.
type movieListing struct {
	Movie    model.Movie     `json:"movie"`
	Sessions []model.Session `json:"sessions"`
}

// ListMovies handles GET /v1/movies.  It returns every active movie along
// with its upcoming sessions so the landing page renders from one request.
// ?genre= switches to a case-insensitive genre search instead.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx := c.Request().Context()
	var movies []model.Movie
	var err error
	if genre := strings.TrimSpace(c.QueryParam("genre")); genre != "" {
		movies, err = h.MovieRepo.ListByGenre(ctx, genre)
	} else {
		movies, err = h.MovieRepo.ListActive(ctx)
	}
	if err != nil {
		return repoError(c, err)
	}
	now := time.Now().UTC()
	items := make([]movieListing, 0, len(movies))
	for i := range movies {
		sessions, err := h.SessionRepo.ListUpcomingByMovie(ctx, movies[i].ID, now)
		if err != nil {
			return repoError(c, err)
		}
		if sessions == nil {
			sessions = []model.Session{}
		}
		items = append(items, movieListing{Movie: movies[i], Sessions: sessions})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetMovie handles GET /v1/movies/:id and returns a movie together with its
// upcoming sessions.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	ctx := c.Request().Context()
	movie, err := h.MovieRepo.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	sessions, err := h.SessionRepo.ListUpcomingByMovie(ctx, id, time.Now().UTC())
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie, "sessions": sessions})
}

// ListSessions handles GET /v1/sessions.  Without parameters it lists every
// upcoming session.  ?date=YYYY-MM-DD restricts the listing to one calendar
// day; ?days=N widens the window to N days starting today.
func (h *CatalogHandler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()
	var from, to time.Time

	if date := c.QueryParam("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}
		from, to = dayWindow(day)
	} else if daysStr := c.QueryParam("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 1 || days > 60 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 60"})
		}
		start, _ := dayWindow(time.Now())
		from, to = start, start.AddDate(0, 0, days)
	} else {
		from = time.Now().UTC()
	}

	sessions, err := h.SessionRepo.ListBetween(ctx, from, to)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": sessions})
}

// GetSession handles GET /v1/sessions/:id and returns the session joined
// with its movie.
func (h *CatalogHandler) GetSession(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	detail, err := h.SessionRepo.GetDetail(c.Request().Context(), id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// GetSessionSeats handles GET /v1/sessions/:id/seats.  It returns the full
// generated seat grid with a per-seat occupancy flag, plus the grid
// dimensions so clients can lay the map out.
func (h *CatalogHandler) GetSessionSeats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	session, err := h.SessionRepo.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	seats, err := h.ReservationRepo.Availability(ctx, id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": id,
		"seat_rows":  session.SeatRows,
		"seat_cols":  session.SeatCols,
		"seats":      seats,
	})
}

// GetOccupiedSeats handles GET /v1/sessions/:id/seats/occupied.  It returns
// just the occupied labels, sorted by row and column, which is what seat
// selectors poll to refresh their state.
func (h *CatalogHandler) GetOccupiedSeats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	occupied, err := h.ReservationRepo.OccupiedSeats(c.Request().Context(), id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": id, "occupied": occupied})
}

// GetSessionOccupancy handles GET /v1/sessions/:id/occupancy.
func (h *CatalogHandler) GetSessionOccupancy(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	occ, err := h.ReservationRepo.Occupancy(c.Request().Context(), id)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, occ)
}
