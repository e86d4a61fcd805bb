// Package main is the entry point for the streak trainer HTTP service.
//
// The service loads lottery results and algorithm descriptors, then exposes a
// job API for the parameter search worker and streams its events to clients.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/di"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/server"
	"github.com/junlangzi/Lottery-Predictor-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
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

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting streak trainer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if container.Mirror != nil {
		go container.Mirror.Run(ctx)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup mirror started")
	}

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	srv.StartHub()
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stopping the job first lets it save its state before the process exits.
	if err := container.Runner.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Job did not stop cleanly")
	}

	container.Scheduler.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()

	log.Info().Msg("Server stopped")
}
