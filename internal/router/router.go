// Package router wires HTTP routes to their handlers and attaches the
// per-group middleware (response cache, rate limiting).
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cineflow/cineflow/internal/config"
	"github.com/cineflow/cineflow/internal/handler"
	"github.com/cineflow/cineflow/internal/middleware"
)

// Handlers groups every handler the router needs.
type Handlers struct {
	Catalog *handler.CatalogHandler
	Booking *handler.BookingHandler
	Admin   *handler.AdminHandler
	Chat    *handler.ChatHandler
}

// Register attaches all routes to the Echo instance.  Public GET listings
// are cached per namespace so write paths can invalidate them selectively;
// booking and chat are rate limited per client.
func Register(e *echo.Echo, h Handlers, rdb *redis.Client) {
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	e.GET("/healthz", handler.Health)

	movies := e.Group("/v1/movies", middleware.NewRedisCache(cacheCfg, rdb, "movies"))
	movies.GET("", h.Catalog.ListMovies)
	movies.GET("/:id", h.Catalog.GetMovie)

	sessions := e.Group("/v1/sessions", middleware.NewRedisCache(cacheCfg, rdb, "sessions"))
	sessions.GET("", h.Catalog.ListSessions)
	sessions.GET("/:id", h.Catalog.GetSession)
	sessions.GET("/:id/seats", h.Catalog.GetSessionSeats)
	sessions.GET("/:id/seats/occupied", h.Catalog.GetOccupiedSeats)
	sessions.GET("/:id/occupancy", h.Catalog.GetSessionOccupancy)

	limited := middleware.NewTokenBucket(rateCfg, rdb)
	e.POST("/v1/sessions/:id/reservations", h.Booking.CreateReservation, limited)
	e.POST("/v1/reservations/:id/cancel", h.Booking.CancelReservation, limited)
	e.GET("/v1/reservations", h.Booking.ListByEmail)
	e.POST("/v1/chat", h.Chat.Send, limited)

	admin := e.Group("/v1/admin")
	admin.POST("/movies", h.Admin.CreateMovie)
	admin.PUT("/movies/:id", h.Admin.UpdateMovie)
	admin.DELETE("/movies/:id", h.Admin.DeleteMovie)
	admin.POST("/sessions", h.Admin.CreateSession)
	admin.PUT("/sessions/:id", h.Admin.UpdateSession)
	admin.DELETE("/sessions/:id", h.Admin.DeleteSession)
	admin.GET("/reservations", h.Admin.ListReservations)
	admin.GET("/sessions/:id/reservations", h.Admin.ListSessionReservations)
	admin.GET("/sessions/:id/revenue", h.Admin.SessionRevenue)

	dash := admin.Group("/dashboard", middleware.NewRedisCache(cacheCfg, rdb, "admin"))
	dash.GET("", h.Admin.Dashboard)
	dash.GET("/top-sessions", h.Admin.TopSessions)
	dash.GET("/top-movies", h.Admin.TopMovies)
	dash.GET("/daily", h.Admin.DailyOccupancy)
	dash.GET("/revenue", h.Admin.DailyRevenue)
}
