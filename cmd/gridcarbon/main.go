package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	httpapi "github.com/hkoenig/gridcarbon/internal/api/http"
	"github.com/hkoenig/gridcarbon/internal/cache"
	"github.com/hkoenig/gridcarbon/internal/co2"
	"github.com/hkoenig/gridcarbon/internal/config"
	"github.com/hkoenig/gridcarbon/internal/electricitymaps"
	"github.com/hkoenig/gridcarbon/internal/geo"
	"github.com/hkoenig/gridcarbon/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFile)

	loc, err := resolveLocation(cfg, log)
	if err != nil {
		log.Fatalf("failed to resolve location: %v", err)
	}

	// Shared HTTP client for outbound upstream calls; the timeout bounds
	// the wait on a hung upstream.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	store := cache.New(cfg.CacheTTL)

	client := electricitymaps.NewClient(cfg.BaseURL, cfg.Token, loc, httpClient, store, log)
	if cfg.SingleFlight {
		client.EnableSingleFlight()
		log.Info("single-flight upstream dedup enabled")
	}

	service := co2.NewService(client)

	app := fiber.New(fiber.Config{
		AppName:               "gridcarbon",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "gridcarbon",
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()
	log.WithField("port", cfg.Port).Info("gridcarbon listening")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

// resolveLocation turns the configured mode into the fixed upstream
// addressing for this process run. In coords mode without explicit
// coordinates, the configured city is geocoded once.
func resolveLocation(cfg *config.AppConfig, log *logrus.Logger) (electricitymaps.Location, error) {
	if cfg.Mode == config.ModeZone {
		return electricitymaps.Location{Zone: cfg.Zone}, nil
	}

	lat, lon := cfg.Lat, cfg.Lon
	if lat == 0 && lon == 0 && cfg.City != "" {
		var err error
		lat, lon, err = geo.Resolve(cfg.GeocoderAPIKey, cfg.City, cfg.Country)
		if err != nil {
			return electricitymaps.Location{}, err
		}
		log.WithFields(logrus.Fields{
			"city": cfg.City,
			"lat":  lat,
			"lon":  lon,
		}).Info("geocoded configured city")
	}

	return electricitymaps.Location{UseCoords: true, Lat: lat, Lon: lon}, nil
}
