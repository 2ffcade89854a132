// Package worker records collection events into the run history.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boletos/internal/amqp"
	"boletos/internal/core"
	"boletos/internal/storage"
)

// RunStore is the part of the run history the worker uses.
type RunStore interface {
	RecordRun(ctx context.Context, r core.CollectionReport) (int64, error)
	LastRun(ctx context.Context, company string) (storage.Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunWorker turns collection events into run history rows and prunes old
// rows.
type RunWorker struct {
	store     RunStore
	retention time.Duration
	now       func() time.Time
}

// NewRunWorker creates a worker. A retention of zero keeps every run.
func NewRunWorker(store RunStore, retention time.Duration) *RunWorker {
	return &RunWorker{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

// HandleCollectionEvent records one event. A redelivered event, one matching
// the company's last stored run, is acknowledged without a second row.
func (w *RunWorker) HandleCollectionEvent(ctx context.Context, ev *amqp.CollectionEvent) error {
	rep := ev.Report()

	last, err := w.store.LastRun(ctx, rep.Company)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("last run for %s: %w", rep.Company, err)
	case sameRun(last.CollectionReport, rep):
		slog.DebugContext(ctx, "Duplicate collection event skipped",
			"id", last.ID,
			"company", rep.Company,
			"generation", rep.Generation)
		return nil
	default:
		logTransition(ctx, last.CollectionReport, rep)
	}

	id, err := w.store.RecordRun(ctx, rep)
	if err != nil {
		return fmt.Errorf("record run for %s: %w", rep.Company, err)
	}
	slog.DebugContext(ctx, "Collection run recorded",
		"id", id,
		"company", rep.Company,
		"generation", rep.Generation,
		"failed", rep.Failed())
	return nil
}

// sameRun compares at the millisecond precision the history stores.
func sameRun(a, b core.CollectionReport) bool {
	return a.Generation == b.Generation && a.CollectedAt.UnixMilli() == b.CollectedAt.UnixMilli()
}

func logTransition(ctx context.Context, prev, cur core.CollectionReport) {
	switch {
	case !prev.Failed() && cur.Failed():
		slog.WarnContext(ctx, "Company collection started failing",
			"company", cur.Company,
			"status_code", cur.StatusCode,
			"error", cur.Error)
	case prev.Failed() && !cur.Failed():
		slog.InfoContext(ctx, "Company collection recovered",
			"company", cur.Company,
			"failing_since", prev.CollectedAt)
	}
}

// Prune deletes runs older than the retention.
func (w *RunWorker) Prune(ctx context.Context) (int64, error) {
	if w.retention <= 0 {
		return 0, nil
	}
	cutoff := w.now().Add(-w.retention)
	n, err := w.store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned collection runs", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

// PruneEvery runs Prune immediately and then every interval until ctx is done.
func (w *RunWorker) PruneEvery(ctx context.Context, interval time.Duration) {
	if w.retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.Prune(ctx); err != nil {
			slog.ErrorContext(ctx, "Run history pruning failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
