// Package cli holds the famctl command tree and the initialization
// shared by cmd/famctl and cmd/session-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"familybudget/internal/backend"
	"familybudget/internal/config"
	applog "familybudget/internal/log"
	"familybudget/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger. Unknown levels fall back to info; a nil out
// means stdout.
func SetupLogger(level string, out io.Writer) *applog.Logger {
	cfg := applog.DefaultConfig()
	if out != nil {
		cfg.Output = out
	}
	if l, err := applog.ParseLevel(level); err == nil {
		cfg.Level = l
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs validate on it
// (Validate or ValidateSession).
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend creates the configured store and change transport.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bc.Type, err)
	}
	return result, nil
}

// NewApp wires the services over an opened backend.
func NewApp(cfg *config.Config, be *backend.BackendResult) *App {
	store, pub := be.Store, be.Publisher

	obligations := services.NewObligationService(store, pub)
	return &App{
		FamilyID:    cfg.FamilyID,
		ActorID:     cfg.ActorID,
		Ledger:      services.NewLedgerService(store, obligations, pub),
		Obligations: obligations,
		Goals:       services.NewGoalService(store, store, pub),
		Reconciler:  services.NewRecurringProcessor(store, store, pub),
		Settings:    services.NewSettingsService(store, store, pub, cfg.SettingsCacheSize, cfg.SettingsCacheTTL),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
