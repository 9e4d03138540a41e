// Package storage defines the interface for persisting batch analysis results.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when loading a run ID that was never saved
var ErrRunNotFound = errors.New("analysis run not found")

// Run is one batch invocation and everything it produced
type Run struct {
	ID        uuid.UUID            `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Config    types.AnalysisConfig `json:"config"`
	Counts    []batch.CountRow     `json:"counts,omitempty"`
	Rheobase  []batch.RheobaseRow  `json:"rheobase,omitempty"`
}

// NewRun starts a run record with a fresh ID
func NewRun(cfg types.AnalysisConfig) *Run {
	return &Run{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Config:    cfg,
	}
}

// ResultStore is implemented by each storage backend
type ResultStore interface {
	SaveRun(ctx context.Context, run *Run) error
	LoadRun(ctx context.Context, id uuid.UUID) (*Run, error)
	Close() error
}
