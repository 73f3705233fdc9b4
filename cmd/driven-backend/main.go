package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/Opulux135/driven-backend/internal/api/http"
	"github.com/Opulux135/driven-backend/internal/config"
	"github.com/Opulux135/driven-backend/internal/geo"
	"github.com/Opulux135/driven-backend/internal/poi"
	"github.com/Opulux135/driven-backend/internal/poi/providers"
	"github.com/Opulux135/driven-backend/internal/scheduler"
	"github.com/Opulux135/driven-backend/internal/store"
)

func main() {
	// Load configuration (.env included).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Country/centroid registry and location resolver.
	registry := geo.NewRegistry(cfg.GeocoderAPIKey)
	resolver := geo.NewResolver(registry, cfg.DeviceWait)

	// Providers with resilience (backoff + circuit breaker).
	parking := providers.NewParkingProvider(httpClient, cfg.DataAPIBaseURL)
	provs := []poi.Provider{
		parking,
		providers.NewGasProvider(httpClient, cfg.DataAPIBaseURL),
		providers.NewChargingProvider(httpClient, cfg.DataAPIBaseURL),
		providers.NewSpeedCameraProvider(httpClient, cfg.DataAPIBaseURL),
	}
	byCategory := make(map[poi.Category]poi.Provider, len(provs))
	for _, p := range provs {
		byCategory[p.Category()] = p
	}

	// In-memory snapshot store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Core aggregation pipeline.
	classifier := poi.NewClassifier(cfg.Thresholds)
	orchestrator := poi.NewOrchestrator(provs, classifier, memStore, cfg.ProviderTimeout)

	// Scheduler that keeps snapshots warm for the tracked countries.
	sched := scheduler.New(cfg.Countries, cfg.FetchInterval, orchestrator, resolver, registry)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "driven-backend",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "driven-backend",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Orchestrator: orchestrator,
		Store:        memStore,
		Resolver:     resolver,
		Registry:     registry,
		Classifier:   classifier,
		Parking:      parking,
		Providers:    byCategory,
	})

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
