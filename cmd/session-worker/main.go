package main

import (
	"context"
	"os"
	"time"

	"familybudget/internal/cache"
	"familybudget/internal/cli"
	"familybudget/internal/config"
	applog "familybudget/internal/log"
	"familybudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateSession)
	if err != nil {
		cli.SetupLogger("", os.Stdout).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithFamily(cfg.FamilyID)
	logger.Info("Starting session-worker", applog.FieldActorID, cfg.ActorID)

	be, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}

	app := cli.NewApp(cfg, be)
	app.Reconciler.WithLogger(logger)
	app.Goals.WithLogger(logger)

	cacheManager := cache.NewManager()
	cacheManager.Register(app.Settings.Cache())
	cacheManager.StartCleanup(cfg.SettingsCacheTTL)

	sinks := []worker.AlertSink{worker.NewLogSink(nil)}
	if be.AMQP != nil {
		sinks = append(sinks, worker.NewPublisherSink(be.AMQP))
	}

	session, err := worker.NewSession(cfg.FamilyID, cfg.ReconcileInterval, worker.Dependencies{
		Reconciler: app.Reconciler,
		Goals:      app.Goals,
		Ledger:     app.Ledger,
		Settings:   app.Settings,
		Feed:       be.Feed,
		Sinks:      sinks,
	})
	if err != nil {
		logger.Error("Failed to create session", applog.FieldError, err)
		_ = be.Close()
		os.Exit(1)
	}

	stopped := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		<-stopped
		cacheManager.Stop()
		if err := be.Close(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	})

	go func() {
		defer close(stopped)
		if err := session.Run(ctx); err != nil {
			logger.Error("Session failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Session-worker shutdown complete")
}
