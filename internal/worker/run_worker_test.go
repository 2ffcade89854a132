package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boletos/internal/amqp"
	"boletos/internal/core"
	"boletos/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestHandleCollectionEvent(t *testing.T) {
	repo := newRepo(t)
	w := NewRunWorker(repo, 0)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := amqp.NewCollectionEvent(core.CollectionReport{
		Company:     "Acme",
		Generation:  2,
		Records:     10,
		OpenRecords: 4,
		OpenTotal:   321.5,
		StatusCode:  500,
		Error:       "collect Acme: status 500",
		Duration:    1500 * time.Millisecond,
		CollectedAt: at,
	})
	require.NoError(t, w.HandleCollectionEvent(ctx, ev))

	run, err := repo.LastRun(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), run.Generation)
	assert.Equal(t, 4, run.OpenRecords)
	assert.Equal(t, 500, run.StatusCode)
	assert.True(t, run.CollectedAt.Equal(at))
}

func TestHandleCollectionEventSkipsRedelivery(t *testing.T) {
	repo := newRepo(t)
	w := NewRunWorker(repo, 0)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	ev := amqp.NewCollectionEvent(core.CollectionReport{Company: "Acme", Generation: 5, Records: 3, CollectedAt: at})
	require.NoError(t, w.HandleCollectionEvent(ctx, ev))
	require.NoError(t, w.HandleCollectionEvent(ctx, ev))

	runs, err := repo.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	next := amqp.NewCollectionEvent(core.CollectionReport{Company: "Acme", Generation: 6, CollectedAt: at.Add(time.Minute)})
	require.NoError(t, w.HandleCollectionEvent(ctx, next))
	runs, err = repo.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestHandleCollectionEventLastRunError(t *testing.T) {
	w := NewRunWorker(lookupFailingStore{}, 0)
	err := w.HandleCollectionEvent(context.Background(), &amqp.CollectionEvent{Company: "Acme"})
	assert.ErrorContains(t, err, "last run for Acme")
}

func TestPrune(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{48 * time.Hour, time.Hour} {
		_, err := repo.RecordRun(ctx, core.CollectionReport{Company: "Acme", CollectedAt: now.Add(-age)})
		require.NoError(t, err)
	}

	w := NewRunWorker(repo, 24*time.Hour)
	w.now = func() time.Time { return now }

	n, err := w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := repo.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPruneDisabled(t *testing.T) {
	w := NewRunWorker(failingStore{}, 0)
	n, err := w.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingStore struct{}

func (failingStore) RecordRun(context.Context, core.CollectionReport) (int64, error) {
	return 0, errors.New("disk full")
}

func (failingStore) LastRun(context.Context, string) (storage.Run, error) {
	return storage.Run{}, storage.ErrNotFound
}

func (failingStore) DeleteRunsBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("disk full")
}

type lookupFailingStore struct{ failingStore }

func (lookupFailingStore) LastRun(context.Context, string) (storage.Run, error) {
	return storage.Run{}, errors.New("database is locked")
}

func TestErrorsAreWrapped(t *testing.T) {
	w := NewRunWorker(failingStore{}, time.Hour)

	err := w.HandleCollectionEvent(context.Background(), &amqp.CollectionEvent{Company: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run for Acme")

	_, err = w.Prune(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestPruneEveryStopsOnCancel(t *testing.T) {
	repo := newRepo(t)
	w := NewRunWorker(repo, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.PruneEvery(ctx, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PruneEvery did not stop")
	}
}
