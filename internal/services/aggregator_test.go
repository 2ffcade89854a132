package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boletos/internal/core"
	"boletos/internal/source"
	"boletos/internal/source/maino"
	"boletos/internal/source/memory"
)

type fakeRuns struct {
	mu      sync.Mutex
	reports []core.CollectionReport
	err     error
}

func (f *fakeRuns) RecordRun(_ context.Context, r core.CollectionReport) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return int64(len(f.reports)), f.err
}

type fakeEvents struct {
	mu     sync.Mutex
	events []core.CollectionReport
}

func (f *fakeEvents) PublishCollection(_ context.Context, r core.CollectionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, r)
	return errors.New("broker down")
}

var companies = []core.Company{
	{Name: "Alpha", Token: "a"},
	{Name: "Beta", Token: "b"},
	{Name: "Gamma", Token: "c"},
}

func TestAggregator_CollectAll(t *testing.T) {
	store := memory.New(map[string][]core.Receivable{
		"Alpha": {{TitleNumber: "1", Amount: 10}},
		"Gamma": {{TitleNumber: "2", Amount: 20}, {TitleNumber: "3", Amount: 5}},
	})
	store.Fail("Beta", &maino.StatusError{Company: "Beta", StatusCode: 500})
	runs := &fakeRuns{err: errors.New("disk full")}
	events := &fakeEvents{}

	agg := NewAggregator(store, AggregatorConfig{Runs: runs, Events: events})
	state, err := agg.CollectAll(context.Background(), companies)

	if err == nil || !errors.Is(err, maino.ErrHTTPStatus) {
		t.Fatalf("expected aggregated status error, got %v", err)
	}
	if len(state.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(state.Results))
	}
	for i, want := range []string{"Alpha", "Beta", "Gamma"} {
		if state.Results[i].Company != want {
			t.Fatalf("result %d = %s, want %s", i, state.Results[i].Company, want)
		}
	}
	ds := state.Datasets()
	if len(ds["Alpha"]) != 1 || len(ds["Beta"]) != 0 || len(ds["Gamma"]) != 2 {
		t.Fatalf("unexpected datasets: %+v", ds)
	}
	beta, _ := state.Result("Beta")
	if core.StatusCode(beta.Err) != 500 {
		t.Fatalf("expected Beta to carry status 500, got %v", beta.Err)
	}
	if state.Generation != 1 || state.CollectedAt.IsZero() {
		t.Fatalf("unexpected state metadata: %+v", state)
	}

	// Infrastructure failures are reported but do not alter the state.
	if len(runs.reports) != 3 || len(events.events) != 3 {
		t.Fatalf("expected 3 runs and 3 events, got %d and %d", len(runs.reports), len(events.events))
	}
	if runs.reports[1].StatusCode != 500 || runs.reports[2].OpenRecords != 2 {
		t.Fatalf("unexpected reports: %+v", runs.reports)
	}
}

func TestAggregator_KeepsPartialRecords(t *testing.T) {
	partial := source.CollectorFunc(func(_ context.Context, c core.Company) ([]core.Receivable, error) {
		return []core.Receivable{{TitleNumber: "p1"}}, &maino.StatusError{Company: c.Name, StatusCode: 502}
	})
	state, err := NewAggregator(partial, AggregatorConfig{}).CollectAll(context.Background(), companies[:1])
	if err == nil {
		t.Fatal("expected error")
	}
	if got := state.Results[0]; len(got.Records) != 1 || got.Err == nil {
		t.Fatalf("expected partial records with error, got %+v", got)
	}
}

func TestAggregator_GenerationIncrements(t *testing.T) {
	agg := NewAggregator(memory.New(nil), AggregatorConfig{})
	first, _ := agg.CollectAll(context.Background(), companies)
	second, _ := agg.CollectAll(context.Background(), companies)
	if second.Generation != first.Generation+1 {
		t.Fatalf("generation did not increment: %d -> %d", first.Generation, second.Generation)
	}
}

func TestAggregator_NoCompanies(t *testing.T) {
	state, err := NewAggregator(memory.New(nil), AggregatorConfig{}).CollectAll(context.Background(), nil)
	if err != nil || len(state.Results) != 0 {
		t.Fatalf("expected empty state, got %+v %v", state, err)
	}
}

func TestAggregator_SequentialByDefault(t *testing.T) {
	var inFlight, maxInFlight int32
	slow := source.CollectorFunc(func(_ context.Context, _ core.Company) ([]core.Receivable, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	})

	if _, err := NewAggregator(slow, AggregatorConfig{}).CollectAll(context.Background(), companies); err != nil {
		t.Fatal(err)
	}
	if maxInFlight != 1 {
		t.Fatalf("expected sequential collection, saw %d in flight", maxInFlight)
	}
}

func TestAggregator_ConcurrentKeepsOrder(t *testing.T) {
	release := make(chan struct{})
	var started int32
	blocking := source.CollectorFunc(func(_ context.Context, c core.Company) ([]core.Receivable, error) {
		if atomic.AddInt32(&started, 1) == int32(len(companies)) {
			close(release)
		}
		<-release
		return []core.Receivable{{TitleNumber: c.Name}}, nil
	})

	state, err := NewAggregator(blocking, AggregatorConfig{Concurrency: len(companies)}).CollectAll(context.Background(), companies)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range companies {
		if state.Results[i].Company != c.Name || state.Results[i].Records[0].TitleNumber != c.Name {
			t.Fatalf("result %d out of order: %+v", i, state.Results[i])
		}
	}
}
