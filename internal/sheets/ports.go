package sheets

import (
	"context"

	"boletos/internal/core"
)

// Ports for outbound adapters.
type (
	// OpenReceivablesExporter publishes the open receivables of a state.
	OpenReceivablesExporter interface {
		ExportOpen(ctx context.Context, state core.AggregateState) error
	}
)
