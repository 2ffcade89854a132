// Package cli provides the initialization steps shared by cmd/boletos,
// cmd/boletos-snapshot and cmd/boletos-events.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"boletos/internal/amqp"
	"boletos/internal/config"
	"boletos/internal/core"
	applog "boletos/internal/log"
	"boletos/internal/source"
	"boletos/internal/source/maino"
	"boletos/internal/source/memory"
	"boletos/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadCompanies reads the company list or exits the process.
func LoadCompanies(logger *applog.Logger, cfg *config.Config) []core.Company {
	companies, err := cfg.LoadCompanies()
	if err != nil {
		logger.Error("Failed to load companies", applog.FieldError, err, "file", cfg.CompaniesFile)
		os.Exit(1)
	}
	logger.Info("Companies loaded", "count", len(companies))
	return companies
}

// BuildCollector returns the collector for the configured data backend.
func BuildCollector(logger *applog.Logger, cfg *config.Config) source.Collector {
	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Info("Using fixture collector", "backend", cfg.DataBackend, "dir", cfg.FixturesDir)
		return memory.NewFromFiles(cfg.FixturesDir)
	default:
		logger.Info("Using Maino collector", "backend", cfg.DataBackend, "base_url", cfg.MainoBaseURL)
		return maino.New(maino.Options{
			BaseURL:  cfg.MainoBaseURL,
			PageSize: cfg.MainoPageSize,
			Timeout:  cfg.MainoHTTPTimeout,
		})
	}
}

// InitSQLite opens the run history. It returns nil when dbPath is empty and
// exits the process when the database cannot be opened.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	if dbPath == "" {
		logger.Info("Run history disabled")
		return nil
	}
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("Run history enabled", "path", dbPath)
	return repo
}

// InitAMQP connects to the broker. It returns nil when AMQP is not configured.
// With required set a connection failure exits the process, otherwise it is
// logged and AMQP stays disabled.
func InitAMQP(logger *applog.Logger, cfg *config.Config, required bool) *amqp.Client {
	if cfg.AMQPURL == "" {
		if required {
			logger.Error("AMQP_URL is required")
			os.Exit(1)
		}
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if required {
			logger.Error("Failed to connect to AMQP", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Error("Failed to connect to AMQP, events disabled", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has returned or the timeout
// has passed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
