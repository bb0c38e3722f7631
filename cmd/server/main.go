package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duoquiz/internal/app"
	"duoquiz/internal/config"
	"duoquiz/internal/storage"
	httpTransport "duoquiz/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" || cfg.IsProduction() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting duoquiz server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"database", cfg.HasDatabase(),
	)

	// Set up persistence
	var store app.Store = app.NopStore{}
	if cfg.HasDatabase() {
		if cfg.Database.Migrate {
			if err := storage.Migrate(cfg.Database.URL, logger); err != nil {
				logger.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := storage.NewPostgresStore(ctx, cfg.Database.URL, logger)
		cancel()
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, game history will not be saved")
	}

	// Create room registry
	registry := app.NewRegistry(app.RegistryConfig{
		Session: app.SessionConfig{
			HostGracePeriod: cfg.Game.HostGracePeriod,
		},
		Bots: app.BotConfig{
			AnswerDelayMin: cfg.Bots.AnswerDelayMin,
			AnswerDelayMax: cfg.Bots.AnswerDelayMax,
			PickDelayMin:   cfg.Bots.PickDelayMin,
			PickDelayMax:   cfg.Bots.PickDelayMax,
		},
		StaleRoomTimeout: cfg.Game.StaleRoomTimeout,
	}, app.NewWordCodeGenerator(app.RoomCodeWords), store, logger)
	defer registry.Close()

	// Create HTTP server
	server := httpTransport.NewServer(cfg, registry, logger)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
