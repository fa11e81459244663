package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"familybudget/internal/cli"
	"familybudget/internal/config"
	applog "familybudget/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays clean.
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), os.Stderr)

	cfg, err := cli.LoadAndValidateConfig((*config.Config).Validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	if err := cli.NewRootCmd(cli.NewApp(cfg, be)).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
