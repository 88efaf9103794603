package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"powdercast/internal/api"
	"powdercast/internal/config"
	"powdercast/internal/scheduler"
	"powdercast/internal/services"
	"powdercast/internal/store"
	"powdercast/pkg/client"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Powdercast forecast service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	tz, err := time.LoadLocation(cfg.View.Timezone)
	if err != nil {
		logger.Fatal("Failed to load view timezone",
			zap.String("timezone", cfg.View.Timezone),
			zap.Error(err))
	}

	// Durable preferences, ephemeral auth tokens
	prefs, err := openPrefs(cfg.Store.PrefsPath)
	if err != nil {
		logger.Fatal("Failed to open preference store", zap.Error(err))
	}
	tokens := store.NewMemory()

	// Upstream clients
	authClient := client.NewAuthClient(cfg.Upstream.AuthBaseURL, 10*time.Second, tokens, logger)
	weatherClient := client.NewWeatherClient(cfg.Upstream.BaseURL, client.ClientConfig{
		Timeout:        10 * time.Second,
		MaxRetries:     cfg.Retry.MaxRetries,
		RetryDelay:     cfg.Retry.Delay,
		Multiplier:     cfg.Retry.Multiplier,
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
		APIKey:         cfg.Upstream.APIKey,
	}, authClient, logger)

	// Forecast service
	cache := services.NewForecastCache(cfg.Cache.Duration, cfg.Cache.MaxSize, logger)
	defer cache.Stop()
	service := services.NewService(weatherClient, cache, tz, logger)

	// Background refresh
	refreshLocations := cfg.Scheduler.LocationIDs
	if len(refreshLocations) == 0 && cfg.View.DefaultLocationID != "" {
		refreshLocations = []string{cfg.View.DefaultLocationID}
	}
	var refresher *scheduler.Scheduler
	if len(refreshLocations) > 0 {
		refresher = scheduler.NewScheduler(service, refreshLocations, cfg.Scheduler.RefreshInterval, logger)
		if err := refresher.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
		}
	} else {
		logger.Info("No refresh locations configured, scheduler disabled")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: api.ErrorHandler(logger),
	})

	// Setup handlers and routes
	handler := api.NewHandler(service, authClient, prefs, logger)
	if refresher != nil {
		handler.WithScheduler(refresher)
	}
	api.SetupRoutes(app, handler, logger)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if refresher != nil {
		refresher.Stop()
	}

	// Shutdown Fiber app
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func openPrefs(path string) (store.KV, error) {
	if path == "" {
		return store.NewMemory(), nil
	}
	return store.OpenFile(path)
}
