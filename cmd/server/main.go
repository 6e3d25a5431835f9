package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cineflow/cineflow/internal/config"
	"github.com/cineflow/cineflow/internal/database"
	"github.com/cineflow/cineflow/internal/handler"
	"github.com/cineflow/cineflow/internal/middleware"
	"github.com/cineflow/cineflow/internal/queue"
	"github.com/cineflow/cineflow/internal/repository"
	"github.com/cineflow/cineflow/internal/router"
)

func main() {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(&cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: response cache and rate limiting disabled")
	}

	movieRepo := repository.NewMovieRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	invalidator := middleware.NewInvalidator(config.LoadCacheConfig(), rdb)

	h := router.Handlers{
		Catalog: handler.NewCatalogHandler(movieRepo, sessionRepo, reservationRepo),
		Booking: handler.NewBookingHandler(sessionRepo, reservationRepo, invalidator, cfg.BookingTimeout, cfg.EventsEnabled),
		Admin:   handler.NewAdminHandler(movieRepo, sessionRepo, reservationRepo, invalidator),
		Chat:    handler.NewChatHandler(movieRepo, sessionRepo, &cfg),
	}

	if cfg.EventsEnabled {
		go func() {
			if err := queue.StartReservationConsumer(); err != nil {
				log.Printf("reservation consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.Register(e, h, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
