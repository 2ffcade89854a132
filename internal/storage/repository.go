package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"boletos/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("run not found")

// Run is a stored collection run.
type Run struct {
	ID int64
	core.CollectionReport
}

// SQLiteRepository keeps the collection run history.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const insertRun = `INSERT INTO collection_runs
	(company, generation, records, open_records, open_total, status_code, error, duration_ms, collected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RecordRun stores one collection run.
func (r *SQLiteRepository) RecordRun(ctx context.Context, rep core.CollectionReport) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertRun,
		rep.Company,
		int64(rep.Generation),
		rep.Records,
		rep.OpenRecords,
		rep.OpenTotal,
		rep.StatusCode,
		rep.Error,
		rep.Duration.Milliseconds(),
		rep.CollectedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert collection run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("collection run id: %w", err)
	}

	slog.DebugContext(ctx, "Collection run saved to SQLite",
		"id", id,
		"company", rep.Company,
		"generation", rep.Generation,
		"records", rep.Records)

	return id, nil
}

const selectRuns = `SELECT id, company, generation, records, open_records, open_total, status_code, error, duration_ms, collected_at
	FROM collection_runs`

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRepository) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectRuns+` ORDER BY collected_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query collection runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection runs: %w", err)
	}
	return out, nil
}

// LastRun returns the newest run of a company.
func (r *SQLiteRepository) LastRun(ctx context.Context, company string) (Run, error) {
	row := r.db.QueryRowContext(ctx, selectRuns+` WHERE company = ? ORDER BY collected_at DESC, id DESC LIMIT 1`, company)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// DeleteRunsBefore prunes runs older than cutoff and returns how many were removed.
func (r *SQLiteRepository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collection_runs WHERE collected_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete collection runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run        Run
		generation int64
		durationMS int64
		collected  int64
	)
	err := s.Scan(
		&run.ID,
		&run.Company,
		&generation,
		&run.Records,
		&run.OpenRecords,
		&run.OpenTotal,
		&run.StatusCode,
		&run.Error,
		&durationMS,
		&collected,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan collection run: %w", err)
	}
	run.Generation = uint64(generation)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.CollectedAt = time.UnixMilli(collected).UTC()
	return run, nil
}
