package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"boletos/internal/core"
	"boletos/internal/metrics"
)

// StateCollector builds a fresh AggregateState.
type StateCollector interface {
	CollectAll(ctx context.Context, companies []core.Company) (core.AggregateState, error)
}

// RefreshListener runs after every state swap.
type RefreshListener func(ctx context.Context, state core.AggregateState) error

// Dashboard owns the current AggregateState. Refresh replaces it wholesale;
// readers get immutable snapshots.
type Dashboard struct {
	collector StateCollector
	companies []core.Company

	mu     sync.RWMutex
	state  core.AggregateState
	loaded bool

	// refreshMu serializes refreshes.
	refreshMu sync.Mutex
	listeners []RefreshListener
}

func NewDashboard(collector StateCollector, companies []core.Company) *Dashboard {
	return &Dashboard{
		collector: collector,
		companies: append([]core.Company(nil), companies...),
	}
}

// OnRefresh registers a listener. Not safe to call concurrently with Refresh.
func (d *Dashboard) OnRefresh(l RefreshListener) {
	d.listeners = append(d.listeners, l)
}

// Companies returns the configured company names in order.
func (d *Dashboard) Companies() []string {
	names := make([]string, len(d.companies))
	for i, c := range d.companies {
		names[i] = c.Name
	}
	return names
}

// State returns the current snapshot and whether a load has happened.
func (d *Dashboard) State() (core.AggregateState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state, d.loaded
}

// EnsureLoaded performs the initial load once.
func (d *Dashboard) EnsureLoaded(ctx context.Context) error {
	if _, ok := d.State(); ok {
		return nil
	}
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	if _, ok := d.State(); ok {
		return nil
	}
	_, err := d.refreshLocked(ctx)
	return err
}

// Refresh collects every company and swaps the state. A concurrent caller
// waits for the running refresh and then runs its own. The returned error
// aggregates company failures; the state is replaced regardless.
func (d *Dashboard) Refresh(ctx context.Context) (core.AggregateState, error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	return d.refreshLocked(ctx)
}

func (d *Dashboard) refreshLocked(ctx context.Context) (core.AggregateState, error) {
	start := time.Now()
	state, err := d.collector.CollectAll(ctx, d.companies)
	metrics.ObserveRefresh(metrics.Result(err), time.Since(start))

	d.mu.Lock()
	d.state = state
	d.loaded = true
	d.mu.Unlock()

	slog.InfoContext(ctx, "Dashboard refreshed",
		"generation", state.Generation,
		"companies", len(state.Results),
		"failed", len(state.Failed()),
		"duration_ms", time.Since(start).Milliseconds())

	for _, l := range d.listeners {
		if lerr := l(ctx, state); lerr != nil {
			slog.ErrorContext(ctx, "Refresh listener failed", "generation", state.Generation, "error", lerr)
		}
	}
	return state, err
}
