package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/ossim/internal/report"
	"github.com/me/ossim/pkg/model"

	_ "modernc.org/sqlite"
)

// timestampLayout keeps a fixed-width fraction so that stored times sort
// as text in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and
// returns a Store. Use ":memory:" for an in-memory database (useful in
// tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// WAL for concurrent readers while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// SaveRun inserts the run row and its per-process statistics in one
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, stats []report.ProcessStat) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, policy, cpu_count, age_weight, time_slice, total_ticks, avg_turnaround, avg_waiting, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Policy.String(), run.CPUCount, run.AgeWeight, uint64(run.TimeSlice), uint64(run.TotalTicks),
		run.AvgTurnaround, run.AvgWaiting,
		run.StartedAt.Format(timestampLayout), run.FinishedAt.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, st := range stats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO process_stats (run_id, pid, name, priority, arrival, completion, turnaround, waiting, service)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, st.PID, st.Name, st.Priority,
			uint64(st.Arrival), uint64(st.Completion), uint64(st.Turnaround), uint64(st.Waiting), uint64(st.Service),
		)
		if err != nil {
			return fmt.Errorf("insert stat pid %d: %w", st.PID, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run by ID, or nil when it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, policy, cpu_count, age_weight, time_slice, total_ticks, avg_turnaround, avg_waiting, started_at, finished_at
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, cpu_count, age_weight, time_slice, total_ticks, avg_turnaround, avg_waiting, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRunStats returns the per-process statistics of a run in PID order.
func (s *SQLiteStore) ListRunStats(ctx context.Context, runID string) ([]report.ProcessStat, error) {
	s.logger.Debug("sql", "op", "select", "table", "process_stats", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, name, priority, arrival, completion, turnaround, waiting, service
		 FROM process_stats WHERE run_id = ? ORDER BY pid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []report.ProcessStat
	for rows.Next() {
		var st report.ProcessStat
		var arrival, completion, turnaround, waiting, service uint64
		if err := rows.Scan(&st.PID, &st.Name, &st.Priority, &arrival, &completion, &turnaround, &waiting, &service); err != nil {
			return nil, err
		}
		st.Arrival = model.Tick(arrival)
		st.Completion = model.Tick(completion)
		st.Turnaround = model.Tick(turnaround)
		st.Waiting = model.Tick(waiting)
		st.Service = model.Tick(service)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var policy string
	var timeSlice, totalTicks uint64
	var startedAt, finishedAt string

	err := row.Scan(&run.ID, &policy, &run.CPUCount, &run.AgeWeight, &timeSlice, &totalTicks,
		&run.AvgTurnaround, &run.AvgWaiting, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Policy = model.Policy(policy)
	run.TimeSlice = model.Tick(timeSlice)
	run.TotalTicks = model.Tick(totalTicks)
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}
