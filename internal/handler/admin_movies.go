// Admin back-office handlers for the movie catalogue.  Movies are only ever
// soft-deactivated so existing sessions keep a valid reference.

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/middleware"
	"github.com/cineflow/cineflow/internal/model"
	"github.com/cineflow/cineflow/internal/repository"
)

// AdminHandler bundles the repositories behind the /v1/admin surface.
type AdminHandler struct {
	MovieRepo       *repository.MovieRepo
	SessionRepo     *repository.SessionRepo
	ReservationRepo *repository.ReservationRepo
	Invalidator     *middleware.Invalidator
}

// NewAdminHandler constructs an AdminHandler.  Invalidator may be nil.
func NewAdminHandler(movies *repository.MovieRepo, sessions *repository.SessionRepo, reservations *repository.ReservationRepo, inv *middleware.Invalidator) *AdminHandler {
	if movies == nil || sessions == nil || reservations == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{
		MovieRepo:       movies,
		SessionRepo:     sessions,
		ReservationRepo: reservations,
		Invalidator:     inv,
	}
}

// bustCatalog drops every cached public listing after an admin mutation.
func (h *AdminHandler) bustCatalog(c echo.Context) {
	h.Invalidator.Bust(c.Request().Context(), "movies", "sessions", "admin")
}

type movieBody struct {
	Title       string  `json:"title"`
	Synopsis    string  `json:"synopsis"`
	DurationMin uint32  `json:"duration_min"`
	Genre       string  `json:"genre"`
	Rating      string  `json:"rating"`
	PosterURL   *string `json:"poster_url"`
}

func (b *movieBody) validate() (string, bool) {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return "title is required", false
	}
	if b.DurationMin == 0 {
		return "duration_min must be positive", false
	}
	if !model.ValidRating(b.Rating) {
		return "invalid rating", false
	}
	return "", true
}

// CreateMovie handles POST /v1/admin/movies.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var body movieBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg, ok := body.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	movie, err := h.MovieRepo.Create(c.Request().Context(), &model.Movie{
		Title:       body.Title,
		Synopsis:    strings.TrimSpace(body.Synopsis),
		DurationMin: body.DurationMin,
		Genre:       strings.TrimSpace(body.Genre),
		Rating:      model.Rating(body.Rating),
		PosterURL:   body.PosterURL,
		IsActive:    true,
	})
	if err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.JSON(http.StatusCreated, movie)
}

// UpdateMovie handles PUT /v1/admin/movies/:id.  The full document is
// replaced; partial updates are not supported.
func (h *AdminHandler) UpdateMovie(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	var body movieBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg, ok := body.validate(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	movie, err := h.MovieRepo.Update(c.Request().Context(), id, &model.Movie{
		Title:       body.Title,
		Synopsis:    strings.TrimSpace(body.Synopsis),
		DurationMin: body.DurationMin,
		Genre:       strings.TrimSpace(body.Genre),
		Rating:      model.Rating(body.Rating),
		PosterURL:   body.PosterURL,
	})
	if err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.JSON(http.StatusOK, movie)
}

// DeleteMovie handles DELETE /v1/admin/movies/:id.  The movie is
// deactivated, not removed.
func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	if err := h.MovieRepo.Deactivate(c.Request().Context(), id); err != nil {
		return repoError(c, err)
	}
	h.bustCatalog(c)
	return c.NoContent(http.StatusNoContent)
}
