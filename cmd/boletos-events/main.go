// Command boletos-events records the collection events published by the
// dashboard into the SQLite run history and prunes runs past RUN_RETENTION.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"boletos/internal/cli"
	applog "boletos/internal/log"
	"boletos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.SQLiteDBPath == "" {
		logger.Error("SQLITE_DB_PATH is required")
		os.Exit(1)
	}
	repo := cli.InitSQLite(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	client := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg, true)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		_ = client.Close()
	})

	runs := worker.NewRunWorker(repo, cfg.RunRetention)
	go runs.PruneEvery(ctx, time.Hour)

	logger.Info("Starting boletos events consumer",
		"queue", cfg.AMQPQueue,
		"db", cfg.SQLiteDBPath,
		"retention", cfg.RunRetention)
	if err := client.ConsumeCollections(ctx, runs.HandleCollectionEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	_ = repo.Close()
	logger.Info("Events consumer stopped")
}
