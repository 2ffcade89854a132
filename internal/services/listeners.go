package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"boletos/internal/core"
	"boletos/internal/metrics"
	"boletos/internal/sheets"
)

// ExportListener pushes every refreshed state to exporter. The export is
// counted in the export metrics under format.
func ExportListener(format string, exporter sheets.OpenReceivablesExporter) RefreshListener {
	return func(ctx context.Context, state core.AggregateState) error {
		start := time.Now()
		err := exporter.ExportOpen(ctx, state)
		metrics.ObserveExport(format, metrics.Result(err), time.Since(start))
		if err != nil {
			return fmt.Errorf("export %s generation %d: %w", format, state.Generation, err)
		}
		slog.InfoContext(ctx, "Open receivables exported",
			"component", "export",
			"format", format,
			"generation", state.Generation)
		return nil
	}
}
