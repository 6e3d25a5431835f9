package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListReservations handles GET /v1/admin/reservations.  Every reservation,
// cancelled ones included, is returned joined with its session and movie.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	items, err := h.ReservationRepo.ListAll(c.Request().Context())
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
