// Package main is the entry point for the music server.
//
// main stays minimal: read configuration, build the logger, hand both to
// internal/server and block until shutdown. Everything else lives in
// internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/music-server/internal/config"
	"github.com/sakif/music-server/internal/logger"
	"github.com/sakif/music-server/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Flags, then environment (and .env), then struct-tag defaults.
	cfg := config.LoadConfig()

	// === 2. LOGGING ===
	log := logger.New(logger.Config{
		Format:      cfg.LogFormat,
		Level:       cfg.LogLevel,
		Environment: cfg.AppEnv,
	})
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SERVER ===
	srv, err := server.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and releases resources on the way out.
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
