package store

import (
	"context"
	"time"

	"github.com/folio-scout/harvest-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Keyword      string          `json:"keyword,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the harvest run archive. The
// archive is history and reporting only; discovery never consults it.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.HarvestParams) (*model.HarvestRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.HarvestResult) error
	GetRun(ctx context.Context, runID string) (*model.HarvestRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.HarvestRun, error)

	// Records
	InsertRecords(ctx context.Context, runID string, records []model.Record) error
	ListRecords(ctx context.Context, runID string) ([]model.Record, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
