package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sheetcharts/internal/auth"
	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/cli"
	"sheetcharts/internal/log"
	"sheetcharts/internal/services"
	"sheetcharts/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting sheetcharts-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Error("The worker shares the metadata store with the server and needs the sqlite backend",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	res := cli.OpenBackend(context.Background(), logger, cfg, true)
	repo := res.Repository

	blobs, err := blob.NewFS(cfg.BlobDir)
	if err != nil {
		logger.Error("Failed to initialize blob store", log.FieldError, err.Error(), "dir", cfg.BlobDir)
		os.Exit(1)
	}

	// The worker only validates tables; a small cache is enough.
	tables := cache.NewTableCache(1, time.Minute)
	ingester := services.NewIngester(repo, blobs, tables, logger)
	accounts := auth.NewService(repo, repo, cfg.SessionTTL, logger)

	sweepCfg := services.DefaultSweepProcessorConfig()
	sweepCfg.PollInterval = cfg.WorkerPollInterval
	sweepCfg.MinAge = cfg.WorkerPollInterval
	sweepCfg.BatchSize = cfg.WorkerBatchSize
	sweeper := services.NewSweepProcessor(repo, ingester, accounts, sweepCfg, logger)
	ingestWorker := worker.NewIngestWorker(ingester, sweeper, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := sweeper.Stop(ctx); err != nil {
			logger.Warn("Sweep processor stop error", log.FieldError, err.Error())
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	// Files uploaded while no worker was running
	logger.Info("Performing startup ingestion check...")
	ingestWorker.StartupCheck(ctx)

	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start sweep processor", log.FieldError, err.Error())
	}

	go func() {
		err := res.AMQP.ConsumeFileUploaded(ctx, ingestWorker.HandleFileUploaded)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
