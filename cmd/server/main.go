// Package main is the entry point for the report desk server.
// The server keeps pasted sales reports and allocation settings in a shared
// key-value store, derives every dashboard view from them and serves the
// results over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/reportdesk/internal/config"
	"github.com/aristath/reportdesk/internal/di"
	"github.com/aristath/reportdesk/internal/server"
	"github.com/aristath/reportdesk/pkg/logger"
)

// main is the application entry point. It orchestrates the startup sequence:
// 1. Loads configuration from environment variables
// 2. Initializes logging
// 3. Wires the database, event bus, store, services and jobs via the DI container
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and performs graceful shutdown
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("store_code", cfg.StoreCode).
		Msg("Starting report desk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire all dependencies using DI container
	// Persisted settings are applied and the dashboard replays stored state here.
	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:          log,
		DB:           container.StoreDB,
		DataDir:      cfg.DataDir,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		EventManager: container.EventManager,
		Dashboard:    container.DashboardService,
		Backup:       container.BackupService,
		RemoteBackup: container.RemoteBackup,
		Scheduler:    container.Scheduler,
		Jobs:         jobs.All(),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// The HTTP server is given up to 10 seconds to finish in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop scheduler and wait for a running backup to finish
	container.Scheduler.Stop()
	log.Info().Msg("Scheduler stopped")

	// Flush pending store writes and close the database
	if err := container.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to close cleanly")
	}

	log.Info().Msg("Server stopped")
}
