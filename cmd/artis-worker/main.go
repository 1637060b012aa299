package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"artis/internal/amqp"
	"artis/internal/cli"
	applog "artis/internal/log"
	gsheet "artis/internal/refdata/google"
	"artis/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting artis-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker always needs the local database, regardless of the web
	// app's DATA_BACKEND setting.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Google Sheets is the export sink and index source (optional).
	var sheetsClient *gsheet.Client
	if cfg.SheetsConfigured() {
		var err error
		sheetsClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	var exportWorker *worker.ExportWorker
	if sheetsClient != nil {
		exportWorker = worker.NewExportWorker(repo, sheetsClient, sheetsClient, cfg.ExportBatchSize)
	} else {
		// Without a sink the worker still refreshes nothing and exports
		// nothing; keep it nil and skip the loops below.
		logger.Info("Skipping export operations - no sink available")
	}

	if exportWorker != nil {
		// Refresh the reference index when the table is empty or stale.
		if err := exportWorker.RefreshIndexIfNeeded(ctx); err != nil {
			logger.Error("Failed to refresh reference index", "error", err)
		}

		// Ship anything left pending from previous runs.
		logger.Info("Performing startup export check...")
		if err := exportWorker.StartupExportCheck(ctx); err != nil {
			logger.Error("Failed startup export check", "error", err)
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			err := amqpClient.ConsumeSubmissionExports(gctx, func(msg *amqp.SubmissionExportMessage) error {
				return exportWorker.HandleExportMessage(gctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
				return err
			}
			return nil
		})

		g.Go(func() error {
			ticker := time.NewTicker(cfg.ExportInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := exportWorker.ProcessPendingSubmissions(gctx); err != nil {
						logger.Error("Periodic export failed", "error", err)
					}
				}
			}
		})

		g.Go(func() error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := exportWorker.RefreshIndexIfNeeded(gctx); err != nil {
						logger.Error("Periodic index refresh failed", "error", err)
					}
				}
			}
		})

		go func() {
			if err := g.Wait(); err != nil {
				logger.Error("Worker group stopped", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
