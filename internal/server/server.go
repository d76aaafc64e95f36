package server

import (
	"github.com/vilnisdev/catoctin-mountain/internal/auth"
	"github.com/vilnisdev/catoctin-mountain/internal/config"
	"github.com/vilnisdev/catoctin-mountain/internal/poi"
	"github.com/vilnisdev/catoctin-mountain/internal/shared/geo"
	"github.com/vilnisdev/catoctin-mountain/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Objects storage.ObjectStore
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, objects storage.ObjectStore) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Objects: objects,
	}

	registerRoutes(s)
	return s
}

func parkBounds(cfg config.Config) geo.Bounds {
	return geo.Bounds{
		MinLat: cfg.ParkMinLat,
		MaxLat: cfg.ParkMaxLat,
		MinLng: cfg.ParkMinLng,
		MaxLng: cfg.ParkMaxLng,
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Map constants for the client: center, zoom and the validation box.
	s.App.Get("/map/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"center_lat":   s.Cfg.ParkCenterLat,
			"center_lng":   s.Cfg.ParkCenterLng,
			"default_zoom": s.Cfg.ParkDefaultZoom,
			"bounds": fiber.Map{
				"min_lat": s.Cfg.ParkMinLat,
				"max_lat": s.Cfg.ParkMaxLat,
				"min_lng": s.Cfg.ParkMinLng,
				"max_lng": s.Cfg.ParkMaxLng,
			},
		})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	adminMiddleware := auth.AdminRequired()

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	poi.RegisterRoutes(s.App.Group("/pois"), poi.NewService(s.DB, s.Objects, parkBounds(s.Cfg), s.Redis), jwtMiddleware, adminMiddleware)
}
