// Command boletos-snapshot collects every company once and writes the open
// receivables to an XLSX workbook and, optionally, a PDF report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"boletos/internal/cli"
	"boletos/internal/core"
	"boletos/internal/export"
	applog "boletos/internal/log"
	"boletos/internal/services"
)

func main() {
	out := flag.String("out", "boletos-em-aberto.xlsx", "XLSX output path (empty to skip)")
	pdfOut := flag.String("pdf", "", "PDF output path (empty to skip)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	companies := cli.LoadCompanies(logger, cfg)
	collector := cli.BuildCollector(logger.WithComponent(applog.ComponentCollector), cfg)

	aggCfg := services.AggregatorConfig{Concurrency: cfg.FetchConcurrency}
	if repo := cli.InitSQLite(logger.WithComponent(applog.ComponentStorage), cfg.SQLiteDBPath); repo != nil {
		defer repo.Close()
		aggCfg.Runs = repo
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, collectErr := services.NewAggregator(collector, aggCfg).CollectAll(ctx, companies)

	if err := write(logger, *out, export.BuildXLSX, state); err != nil {
		os.Exit(1)
	}
	if err := write(logger, *pdfOut, export.BuildPDF, state); err != nil {
		os.Exit(1)
	}

	if collectErr != nil {
		logger.Error("Snapshot incomplete", "failed", len(state.Failed()), applog.FieldError, collectErr)
		os.Exit(2)
	}
	logger.Info("Snapshot complete", "companies", len(state.Results), applog.FieldGeneration, state.Generation)
}

func write(logger *applog.Logger, path string, build func(core.AggregateState) ([]byte, error), state core.AggregateState) error {
	if path == "" {
		return nil
	}
	data, err := build(state)
	if err != nil {
		logger.Error("Failed to build export", "path", path, applog.FieldError, err)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("Failed to write export", "path", path, applog.FieldError, err)
		return err
	}
	logger.Info("Export written", "path", path, "bytes", len(data))
	return nil
}
