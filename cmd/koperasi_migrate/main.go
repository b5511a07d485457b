package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/SscSPs/koperasi_core/internal/repositories/database/pgsql"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying pending ones")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(cfg.IsProduction, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("PGSQL_URL is required")
		os.Exit(1)
	}

	if *down > 0 {
		logger.Info("Rolling back database migrations...", slog.Int("steps", *down))
		err = pgsql.RollbackMigrations(logger, cfg.DatabaseURL, *down)
	} else {
		logger.Info("Running database migrations...")
		err = pgsql.RunMigrations(logger, cfg.DatabaseURL)
	}
	if err != nil {
		logger.Error("Migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
