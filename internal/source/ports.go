// Package source defines where receivables come from.
package source

import (
	"context"

	"boletos/internal/core"
)

// Collector fetches every receivable of one company.
//
// On failure it returns the records gathered before the failure together
// with the error.
type Collector interface {
	Collect(ctx context.Context, company core.Company) ([]core.Receivable, error)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(ctx context.Context, company core.Company) ([]core.Receivable, error)

func (f CollectorFunc) Collect(ctx context.Context, company core.Company) ([]core.Receivable, error) {
	return f(ctx, company)
}
