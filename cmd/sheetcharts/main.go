package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"sheetcharts/internal/auth"
	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/cli"
	apphttp "sheetcharts/internal/http"
	"sheetcharts/internal/log"
	"sheetcharts/internal/services"
	gsheet "sheetcharts/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	res := cli.OpenBackend(context.Background(), logger, cfg, false)
	repo := res.Repository

	blobs, err := blob.NewFS(cfg.BlobDir)
	if err != nil {
		logger.Error("Failed to initialize blob store", log.FieldError, err.Error(), "dir", cfg.BlobDir)
		os.Exit(1)
	}

	tables := cache.NewTableCache(cfg.TableCacheSize, cfg.TableCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(tables)
	caches.StartCleanup(5 * time.Minute)

	accounts := auth.NewService(repo, repo, cfg.SessionTTL, logger)

	opts := []services.AnalysisOption{services.WithMaxUploadBytes(cfg.MaxUploadBytes)}
	if res.AMQP != nil {
		opts = append(opts, services.WithPublisher(res.AMQP))
		logger.Info("Uploads are ingested by the worker", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("No AMQP broker, uploads are ingested inline")
	}
	if cfg.GoogleSheetsEnabled() {
		sheets, err := gsheet.New(context.Background(), gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
			os.Exit(1)
		}
		opts = append(opts, services.WithSheetReader(sheets))
		logger.Info("Google Sheets import enabled")
	}
	analyses := services.NewAnalysisService(repo, blobs, tables, logger, opts...)

	// Without a worker the server settles leftovers and purges sessions itself.
	var sweeper *services.SweepProcessor
	if res.AMQP == nil {
		sweepCfg := services.DefaultSweepProcessorConfig()
		sweepCfg.PollInterval = cfg.WorkerPollInterval
		sweepCfg.BatchSize = cfg.WorkerBatchSize
		ingester := services.NewIngester(repo, blobs, tables, logger)
		sweeper = services.NewSweepProcessor(repo, ingester, accounts, sweepCfg, logger)
	}

	ready := []apphttp.ReadinessCheck{{Name: "database", Check: repo.Ping}}
	if res.AMQP != nil {
		ready = append(ready, apphttp.ReadinessCheck{Name: "amqp", Check: func(context.Context) error {
			if !res.AMQP.Healthy() {
				return errors.New("broker unavailable")
			}
			return nil
		}})
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SecureCookies,
	}, apphttp.Deps{
		Accounts: accounts,
		Analyses: analyses,
		Ready:    ready,
		Logger:   logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if sweeper != nil {
			if err := sweeper.Stop(ctx); err != nil {
				logger.Warn("Sweep processor stop error", log.FieldError, err.Error())
			}
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	if sweeper != nil {
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("Failed to start sweep processor", log.FieldError, err.Error())
		}
	}

	logger.Info("Starting sheetcharts server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
