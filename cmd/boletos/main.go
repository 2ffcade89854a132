package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"boletos/internal/cache"
	"boletos/internal/cli"
	apphttp "boletos/internal/http"
	applog "boletos/internal/log"
	"boletos/internal/metrics"
	"boletos/internal/services"
	gsheet "boletos/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	metrics.Init()

	companies := cli.LoadCompanies(logger, cfg)
	collector := cli.BuildCollector(logger.WithComponent(applog.ComponentCollector), cfg)

	repo := cli.InitSQLite(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath)
	publisher := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg, false)

	aggCfg := services.AggregatorConfig{Concurrency: cfg.FetchConcurrency}
	switch {
	case publisher != nil:
		// boletos-events writes the history from the published events
		aggCfg.Events = publisher
	case repo != nil:
		aggCfg.Runs = repo
	}
	dashboard := services.NewDashboard(services.NewAggregator(collector, aggCfg), companies)

	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets export", applog.FieldError, err)
		} else {
			dashboard.OnRefresh(services.ExportListener("sheets", sheetsClient))
			logger.Info("Google Sheets export enabled", "sheet", cfg.GoogleSheetName)
		}
	}

	opts := apphttp.Options{
		Dashboard:      dashboard,
		ExportCacheTTL: cfg.ExportCacheTTL,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	}
	if repo != nil {
		opts.History = repo
		opts.Database = repo
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	srv.ReadTimeout = 10 * time.Second
	// POST /refresh waits for a full collection
	srv.WriteTimeout = 5 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager()
	caches.Register(srv.ExportCache())
	caches.StartCleanup(10 * time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if publisher != nil {
			_ = publisher.Close()
		}
		if repo != nil {
			_ = repo.Close()
		}
	})

	go func() {
		if err := dashboard.EnsureLoaded(ctx); err != nil {
			logger.Warn("Initial collection finished with errors", applog.FieldError, err)
		}
	}()

	logger.Info("Starting boletos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"companies", len(companies))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
