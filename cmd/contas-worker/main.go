package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/cli"
	applog "contas/internal/log"
	gsheet "contas/internal/sheets/google"
	"contas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting contas-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The sheets mirror is optional. Without a spreadsheet the worker
	// still drains the queue, acking events with a log line only.
	var mirror *worker.MirrorWorker
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		mirror = worker.NewMirrorWorker(repo, sheetsClient, cfg.SyncBatchSize)

		// Catch up on rows created while the worker was down.
		if err := mirror.StartupCheck(ctx); err != nil {
			logger.Error("Startup mirror check failed", applog.FieldError, err)
		}
	} else {
		logger.Info("Google Sheets disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	handleEvent := func(ctx context.Context, msg *amqp.TransactionEventMessage) error {
		if mirror == nil {
			logger.InfoContext(ctx, "Mirror disabled, acknowledging event",
				applog.FieldTransactionID, msg.ID,
				applog.FieldAction, msg.Action)
			return nil
		}
		return mirror.HandleTransactionEvent(ctx, msg)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := amqpClient.ConsumeTransactionEvents(gctx, handleEvent); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	// Periodic scan for anything the event path missed.
	if mirror != nil {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := mirror.ProcessPending(gctx); err != nil {
						logger.Error("Periodic mirror pass failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
		logger.Info("Worker loop stopped")
	}

	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
