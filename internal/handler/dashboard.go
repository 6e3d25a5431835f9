// Dashboard endpoints aggregate catalogue totals and per-session occupancy
// into the figures the back office renders.

package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cineflow/cineflow/internal/repository"
)

// Dashboard handles GET /v1/admin/dashboard.  It reports catalogue totals,
// today's activity and the average occupancy across all sessions.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	totalMovies, err := h.MovieRepo.Count(ctx)
	if err != nil {
		return repoError(c, err)
	}
	totalSessions, err := h.SessionRepo.Count(ctx)
	if err != nil {
		return repoError(c, err)
	}
	dayStart, dayEnd := dayWindow(time.Now())
	sessionsToday, err := h.SessionRepo.CountBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return repoError(c, err)
	}
	reservationsToday, err := h.ReservationRepo.CountActiveBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return repoError(c, err)
	}
	stats, err := h.SessionRepo.ListStats(ctx, time.Time{}, time.Time{})
	if err != nil {
		return repoError(c, err)
	}
	occupied, capacity := 0, 0
	for i := range stats {
		occupied += stats[i].OccupiedSeats
		capacity += stats[i].TotalSeats
	}
	avgOccupancy := 0
	if capacity > 0 {
		avgOccupancy = int(float64(occupied)/float64(capacity)*100 + 0.5)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_movies":          totalMovies,
		"total_sessions":        totalSessions,
		"sessions_today":        sessionsToday,
		"reservations_today":    reservationsToday,
		"avg_occupancy_percent": avgOccupancy,
	})
}

// TopSessions handles GET /v1/admin/dashboard/top-sessions.  Sessions are
// ranked by occupancy percentage; ties break on revenue.  ?limit= caps the
// list (default 5, max 50).
func (h *AdminHandler) TopSessions(c echo.Context) error {
	limit := 5
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 50"})
		}
		limit = n
	}
	stats, err := h.SessionRepo.ListStats(c.Request().Context(), time.Time{}, time.Time{})
	if err != nil {
		return repoError(c, err)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].OccupancyPercent != stats[j].OccupancyPercent {
			return stats[i].OccupancyPercent > stats[j].OccupancyPercent
		}
		return stats[i].RevenueCents > stats[j].RevenueCents
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return c.JSON(http.StatusOK, echo.Map{"items": stats})
}

// TopMovies handles GET /v1/admin/dashboard/top-movies.  Movies are ranked
// by tickets sold across all their sessions; ?limit= caps the list
// (default 5, max 50).
func (h *AdminHandler) TopMovies(c echo.Context) error {
	limit := 5
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 50"})
		}
		limit = n
	}
	items, err := h.MovieRepo.TopByTickets(c.Request().Context(), limit)
	if err != nil {
		return repoError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DailyRevenue handles GET /v1/admin/dashboard/revenue.  It reports booking
// revenue per day over the last ?days= days ending today (default 7,
// max 31), keyed by when reservations were made.  Days without bookings
// appear with zeroes.
func (h *AdminHandler) DailyRevenue(c echo.Context) error {
	days := 7
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 31 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 31"})
		}
		days = n
	}
	todayStart, todayEnd := dayWindow(time.Now())
	from := todayStart.AddDate(0, 0, -(days - 1))

	rows, err := h.ReservationRepo.RevenueByDay(c.Request().Context(), from, todayEnd)
	if err != nil {
		return repoError(c, err)
	}
	byDay := make(map[string]repository.DailyRevenue, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r
	}
	out := make([]repository.DailyRevenue, 0, days)
	for d := 0; d < days; d++ {
		key := from.AddDate(0, 0, d).Format("2006-01-02")
		row, ok := byDay[key]
		if !ok {
			row = repository.DailyRevenue{Date: key}
		}
		out = append(out, row)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// dailyOccupancy is one row of the per-day occupancy report.
type dailyOccupancy struct {
	Date             string `json:"date"`
	Sessions         int    `json:"sessions"`
	OccupiedSeats    int    `json:"occupied_seats"`
	TotalSeats       int    `json:"total_seats"`
	OccupancyPercent int    `json:"occupancy_percent"`
}

// DailyOccupancy handles GET /v1/admin/dashboard/daily.  It aggregates
// occupancy per calendar day over a window starting today; ?days= sets the
// window length (default 7, max 31).
func (h *AdminHandler) DailyOccupancy(c echo.Context) error {
	days := 7
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 31 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 31"})
		}
		days = n
	}
	ctx := c.Request().Context()
	start, _ := dayWindow(time.Now())
	stats, err := h.SessionRepo.ListStats(ctx, start, start.AddDate(0, 0, days))
	if err != nil {
		return repoError(c, err)
	}

	byDay := make(map[string]*dailyOccupancy, days)
	out := make([]*dailyOccupancy, 0, days)
	for d := 0; d < days; d++ {
		key := start.AddDate(0, 0, d).Format("2006-01-02")
		row := &dailyOccupancy{Date: key}
		byDay[key] = row
		out = append(out, row)
	}
	for i := range stats {
		row, ok := byDay[stats[i].StartsAt.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		row.Sessions++
		row.OccupiedSeats += stats[i].OccupiedSeats
		row.TotalSeats += stats[i].TotalSeats
	}
	for _, row := range out {
		if row.TotalSeats > 0 {
			row.OccupancyPercent = int(float64(row.OccupiedSeats)/float64(row.TotalSeats)*100 + 0.5)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
