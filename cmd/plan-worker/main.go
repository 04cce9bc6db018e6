package main

import (
	"context"
	"os"
	"time"

	"billetera/internal/cache"
	"billetera/internal/cli"
	"billetera/internal/log"
	"billetera/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger("info", log.ComponentPlan).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentPlan)

	logger.Info("Starting plan-worker")

	res, err := cli.OpenBackend(context.Background(), logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	cacheManager.Register(res.Cache)
	cacheManager.StartCleanup(cfg.CacheTTL.Duration)

	processor := services.NewPlanProcessor(res.Ledgers, cfg.PlanHorizon, cfg.PlanConcurrency)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Plan processor configured",
		"interval", cfg.PlanInterval.Duration,
		"horizon", cfg.PlanHorizon,
		"concurrency", cfg.PlanConcurrency,
		"publishing", res.Publishing)

	ticker := time.NewTicker(cfg.PlanInterval.Duration)
	defer ticker.Stop()

	run := func() {
		created, err := processor.ProcessAll(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Plan expansion failed", log.FieldError, err)
			return
		}
		logger.InfoContext(ctx, "Plan expansion finished",
			log.FieldCreated, created,
			"next_check", time.Now().Add(cfg.PlanInterval.Duration).Format("15:04:05"))
	}

	logger.Info("Running initial plan expansion...")
	run()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
