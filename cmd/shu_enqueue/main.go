package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/koperasi_core/internal/jobs"
	"github.com/SscSPs/koperasi_core/internal/platform/config"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/hibiken/asynq"
)

// shu_enqueue queues a SHU calculation for the worker and prints the task id.
func main() {
	tenantID := flag.String("tenant", "", "tenant id")
	planID := flag.String("plan", "", "SHU plan id")
	actorID := flag.String("actor", "", "id of the user requesting the calculation")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(cfg.IsProduction, cfg.LogLevel)

	if *tenantID == "" || *planID == "" || *actorID == "" {
		flag.Usage()
		os.Exit(2)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskID, err := jobs.NewEnqueuer(client, inspector, logger).EnqueueShuCalculation(ctx, *tenantID, *planID, *actorID)
	if err != nil {
		logger.Error("Failed to queue SHU calculation", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Println(taskID)
}
