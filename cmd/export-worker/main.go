package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/export"
	"expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentExport)

	logger.Info("Starting export-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional; without it the worker falls back to periodic
	// snapshots only.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running periodic snapshots only")
	}

	worker := export.NewWorker(repo, cfg.ExportDir)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Write an initial snapshot so a fresh deployment has a file to serve.
	if err := worker.WriteSnapshot(ctx); err != nil {
		logger.Error("Initial snapshot failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeExpenseChanged(gctx, func(msg *amqp.ExpenseChangedMessage) error {
				return worker.HandleChangeMessage(gctx, msg)
			})
		})
	}

	g.Go(func() error {
		return worker.RunPeriodic(gctx, cfg.SnapshotInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Export worker stopped gracefully")
}
