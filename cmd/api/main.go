package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZAX3000/mailtrace/internal/api"
	"github.com/ZAX3000/mailtrace/internal/api/middleware"
	"github.com/ZAX3000/mailtrace/internal/config"
	"github.com/ZAX3000/mailtrace/internal/jobs"
	"github.com/ZAX3000/mailtrace/internal/logger"
	"github.com/ZAX3000/mailtrace/internal/matching"
	"github.com/ZAX3000/mailtrace/internal/repository"
	"github.com/ZAX3000/mailtrace/internal/service"
	"github.com/ZAX3000/mailtrace/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	lg := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "mailtrace",
		File:        cfg.Log.File,
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	})
	logger.SetDefault(lg)

	// Validate matcher configuration before accepting any work
	matchCfg := matching.Config{
		NameWeight:      cfg.Matching.NameWeight,
		AddressWeight:   cfg.Matching.AddressWeight,
		DateWeight:      cfg.Matching.DateWeight,
		DateWindowDays:  cfg.Matching.DateWindowDays,
		AcceptThreshold: cfg.Matching.AcceptThreshold,
		BatchSize:       cfg.Matching.BatchSize,
	}
	if err := matchCfg.Validate(); err != nil {
		lg.WithError(err).Fatal("Invalid matching configuration")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		lg.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	runRepo := repository.NewRunRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	geoRepo := repository.NewGeoPointRepository(db)

	// Initialize artifact storage (local directory or S3-compatible)
	store, err := storage.NewStore(&cfg.Storage)
	if err != nil {
		lg.WithError(err).Fatal("Failed to initialize storage")
	}
	if s3, ok := store.(*storage.S3Store); ok {
		if err := s3.EnsureBucket(context.Background()); err != nil {
			lg.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	// Initialize job runner with stall watchdog
	registry := jobs.NewRegistry()
	runner := jobs.NewRunner(registry, jobs.Config{
		StallTimeout:  cfg.Jobs.StallTimeout,
		Retention:     cfg.Jobs.Retention,
		SweepInterval: cfg.Jobs.SweepInterval,
	}, lg)
	defer runner.Close()

	// Initialize services
	geoService := service.NewGeocodeService(geoRepo, cfg.Geocode, lg)
	matchService := service.NewMatchService(
		runRepo,
		matchRepo,
		geoService,
		store,
		runner,
		matchCfg,
		lg,
	)

	// Setup router
	router := api.SetupRouter(matchService, geoService, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		lg.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.WithError(err).Fatal("Server forced to shutdown")
	}

	lg.Info("Server exited")
}
