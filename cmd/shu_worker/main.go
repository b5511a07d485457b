package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/koperasi_core/internal/core/services"
	"github.com/SscSPs/koperasi_core/internal/jobs"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/SscSPs/koperasi_core/internal/repositories/database/pgsql"
	"github.com/SscSPs/koperasi_core/pkg/database"
	"github.com/hibiken/asynq"
)

const lockPrefix = "koperasi:lock:"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.IsProduction, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Worker exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if cfg.RunMigrations {
		logger.Info("Running database migrations...")
		if err := pgsql.RunMigrations(logger, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	dbPool, err := database.NewPgxPool(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(logger, dbPool)

	redisOpts := database.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	redisClient, err := database.NewRedisClient(ctx, logger, redisOpts)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store := pgsql.NewStore(dbPool, cfg.Ledger.BalanceLockTimeout)
	locker := lock.NewRedisLocker(redisClient, lockPrefix)
	progress := jobs.NewRedisProgress(redisClient, 0, logger)
	container := services.NewServiceContainer(cfg, store, locker, services.WithCalculationObserver(progress))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.ErrorContext(ctx, "Error processing task",
					slog.String("type", task.Type()),
					slog.String("error", err.Error()),
				)
			}),
			// Calculations hold a plan lock; give a running chunk time to
			// finish before the process exits.
			ShutdownTimeout: cfg.Shu.LockWait + cfg.Shu.CalculationTimeout,
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	jobs.RegisterHandlers(mux, container.Shu, logger)

	logger.Info("Worker starting", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := srv.Start(mux); err != nil {
		return err
	}

	// Graceful shutdown
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("Gracefully shutting down worker...")
	srv.Shutdown()
	return nil
}
