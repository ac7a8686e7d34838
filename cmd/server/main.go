// Package main is the entry point for the Teyvat Companion API server.
//
// main only loads configuration, sets up logging and error reporting, and
// hands over to internal/server. All routing and wiring lives there.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/sakif/teyvat-companion/internal/config"
	"github.com/sakif/teyvat-companion/internal/logger"
	"github.com/sakif/teyvat-companion/internal/server"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		// No logger yet; the level itself comes from config.
		logger.New(slog.LevelInfo).Fatal("failed to load config", slog.String("error", err.Error()))
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log.Logger)

	if err := run(cfg, log.Logger); err != nil {
		log.Fatal("server error", slog.String("error", err.Error()))
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// === ERROR REPORTING ===
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Error("sentry init failed", slog.String("error", err.Error()))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// === DATABASE DIRECTORY ===
	// SQLite creates the file but not its parent directories.
	if cfg.Database.Driver == config.DriverSQLite && cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return fmt.Errorf("creating database directory %s: %w", dbDir, err)
		}
	}

	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	return srv.Start()
}
