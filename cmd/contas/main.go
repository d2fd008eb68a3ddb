package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"contas/internal/amqp"
	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/dashboard"
	apphttp "contas/internal/http"
	"contas/internal/ledger"
	applog "contas/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The event bus is optional: without it the mirror worker falls back
	// to its periodic unsynced scan.
	var events ledger.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", applog.FieldError, err)
		} else {
			amqpClient = client
			events = client
			defer amqpClient.Close()
		}
	}

	service := ledger.NewService(repo, events)
	controller := dashboard.NewController(service, core.Today())
	controller.Load(context.Background())

	srv := apphttp.NewServer(":"+cfg.Port, controller)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting contas server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
