package main

import (
	"context"
	"errors"
	"os"
	"time"

	"billetera/internal/amqp"
	"billetera/internal/backend"
	"billetera/internal/cli"
	"billetera/internal/log"
	"billetera/internal/services"
	"billetera/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", log.ComponentWorker).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	logger.Info("Starting sync-worker")

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// the worker only reads ledgers, so it does not publish
	bcfg.AMQPURL = ""

	factory := backend.NewFactory(logger.Logger)
	res, err := factory.CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	mirror, err := factory.CreateMirror(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(res.Repository, mirror, cfg.SyncMinWriteInterval.Duration)
	processor := services.NewSyncProcessor(res.Repository, syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval.Duration,
		BatchSize:    cfg.SyncBatchSize,
	})

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on polling", log.FieldError, err)
			amqpClient = nil
		}
	} else {
		logger.Info("AMQP disabled, relying on polling")
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(stopCtx context.Context) {
		if err := processor.Stop(stopCtx); err != nil {
			logger.Warn("Sync processor did not stop in time", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerSync(ctx, syncWorker.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed, relying on polling", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
