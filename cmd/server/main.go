// Package main is the entry point for the accounts API server.
//
// MAIN PACKAGE IN GO:
// main should stay minimal. Its job is to:
//  1. read configuration
//  2. create dependencies (logger, storage)
//  3. start the application
//
// All actual logic lives in internal/ packages.
//
// WHY cmd/server/?
// cmd/ holds one directory per executable. This project has two:
// cmd/server (the HTTP API) and cmd/manage (admin tasks).
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/accounts-api/internal/config"
	"github.com/sakif/accounts-api/internal/server"
	"github.com/sakif/accounts-api/internal/storage"
)

func main() {
	// === 1. CONFIGURATION ===
	// Exits with the list of supported variables if something is missing.
	cfg := config.MustLoad()

	// === 2. LOGGING ===
	logger := setupLogger(cfg.Env)
	logger.Info("starting accounts-api", slog.String("config", cfg.String()))

	// === 3. STORAGE ===
	// Opening also applies pending migrations.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.Open(ctx, cfg.Storage, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open storage",
			slog.String("driver", cfg.Storage.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	// The server owns the store from here on and closes it on shutdown.
	srv, err := server.New(cfg, store, logger)
	if err != nil {
		store.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupLogger picks human-readable debug output locally and JSON elsewhere.
//
// Log levels (least to most severe): Debug → Info → Warn → Error.
func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
