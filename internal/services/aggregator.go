package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"boletos/internal/core"
	"boletos/internal/metrics"
	"boletos/internal/source"
)

type (
	// RunRecorder stores collection run metadata.
	RunRecorder interface {
		RecordRun(ctx context.Context, r core.CollectionReport) (int64, error)
	}

	// EventPublisher announces finished collection runs.
	EventPublisher interface {
		PublishCollection(ctx context.Context, r core.CollectionReport) error
	}
)

// AggregatorConfig holds the optional collaborators of an Aggregator.
type AggregatorConfig struct {
	// Concurrency is the number of companies collected at once (default: 1).
	Concurrency int

	// Runs and Events may be nil.
	Runs   RunRecorder
	Events EventPublisher
}

// Aggregator collects every configured company into one AggregateState.
type Aggregator struct {
	collector   source.Collector
	runs        RunRecorder
	events      EventPublisher
	concurrency int
	generation  atomic.Uint64
	now         func() time.Time
}

func NewAggregator(collector source.Collector, cfg AggregatorConfig) *Aggregator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Aggregator{
		collector:   collector,
		runs:        cfg.Runs,
		events:      cfg.Events,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
}

// CollectAll runs the collector once per company. The state always holds one
// result per company in configuration order; a failing company keeps its
// partial records and its error without affecting the others. The returned
// error aggregates every company error.
func (a *Aggregator) CollectAll(ctx context.Context, companies []core.Company) (core.AggregateState, error) {
	generation := a.generation.Add(1)
	results := make([]core.CompanyResult, len(companies))

	if a.concurrency == 1 {
		for i, c := range companies {
			results[i] = a.collectOne(ctx, c, generation)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.concurrency)
		for i, c := range companies {
			g.Go(func() error {
				results[i] = a.collectOne(ctx, c, generation)
				return nil
			})
		}
		_ = g.Wait()
	}

	state := core.AggregateState{
		Results:     results,
		CollectedAt: a.now(),
		Generation:  generation,
	}

	var merr *multierror.Error
	for _, res := range results {
		if res.Err != nil {
			merr = multierror.Append(merr, res.Err)
		}
	}
	return state, merr.ErrorOrNil()
}

func (a *Aggregator) collectOne(ctx context.Context, company core.Company, generation uint64) core.CompanyResult {
	start := a.now()
	records, err := a.collector.Collect(ctx, company)
	res := core.CompanyResult{
		Company:  company.Name,
		Records:  records,
		Err:      err,
		Duration: a.now().Sub(start),
	}

	report := core.NewCollectionReport(res, generation, a.now())
	metrics.ObserveCollection(company.Name, metrics.Result(err), res.Duration)
	metrics.ObserveOpen(company.Name, report.OpenTotal, report.OpenRecords)

	if err != nil {
		slog.ErrorContext(ctx, "Company collection failed",
			"company", company.Name,
			"records", len(records),
			"status", report.StatusCode,
			"error", err)
	} else {
		slog.InfoContext(ctx, "Company collected",
			"company", company.Name,
			"records", len(records),
			"open_records", report.OpenRecords,
			"duration_ms", res.Duration.Milliseconds())
	}

	a.report(ctx, report)
	return res
}

// report hands the run to the history and the event bus. Failures there are
// logged and never change the collection result.
func (a *Aggregator) report(ctx context.Context, r core.CollectionReport) {
	if a.runs != nil {
		if _, err := a.runs.RecordRun(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to record collection run", "company", r.Company, "error", err)
		}
	}
	if a.events != nil {
		if err := a.events.PublishCollection(ctx, r); err != nil {
			slog.ErrorContext(ctx, "Failed to publish collection event", "company", r.Company, "error", err)
		}
	}
}
