// Package store persists finished simulation runs so policies can be
// compared across invocations. The scheduling core itself keeps no
// state between runs; only results land here.
package store

import (
	"context"
	"time"

	"github.com/me/ossim/internal/report"
	"github.com/me/ossim/pkg/model"
)

// Run is one recorded simulation.
type Run struct {
	ID            string
	Policy        model.Policy
	CPUCount      int
	AgeWeight     uint32
	TimeSlice     model.Tick
	TotalTicks    model.Tick
	AvgTurnaround float64
	AvgWaiting    float64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store defines the persistence layer for run history.
type Store interface {
	// SaveRun records a run and its per-process statistics.
	SaveRun(ctx context.Context, run *Run, stats []report.ProcessStat) error

	// GetRun returns a run by ID, or nil when it does not exist.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// ListRunStats returns the per-process statistics of a run in PID
	// order.
	ListRunStats(ctx context.Context, runID string) ([]report.ProcessStat, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
