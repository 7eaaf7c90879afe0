package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all tables. Each statement uses IF NOT
// EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		policy         TEXT NOT NULL,
		cpu_count      INTEGER NOT NULL,
		age_weight     INTEGER NOT NULL DEFAULT 0,
		time_slice     INTEGER NOT NULL DEFAULT 0,
		total_ticks    INTEGER NOT NULL,
		avg_turnaround REAL NOT NULL,
		avg_waiting    REAL NOT NULL,
		started_at     TEXT NOT NULL,
		finished_at    TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS process_stats (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pid        INTEGER NOT NULL,
		name       TEXT NOT NULL,
		priority   INTEGER NOT NULL,
		arrival    INTEGER NOT NULL,
		completion INTEGER NOT NULL,
		turnaround INTEGER NOT NULL,
		waiting    INTEGER NOT NULL,
		service    INTEGER NOT NULL,
		PRIMARY KEY (run_id, pid)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_process_stats_run_id ON process_stats(run_id)`,
}

// migrate applies every schema statement in order.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
