// Package sqlite stores analysis runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/chrissnell/apanalyzer/pkg/migrate"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements storage.ResultStore on SQLite
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New opens (creating if needed) the database at path and applies the schema
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "result_schema_migrations"), logger)
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate result store: %w", err)
	}

	logger.Debugf("opened SQLite result store at %s", path)
	return &Store{db: db, logger: logger}, nil
}

// SaveRun writes a run and its rows in one transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, created_at, sampling_stride, amplitude_threshold, rate_threshold, peak_policy)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.CreatedAt.Format(time.RFC3339Nano), run.Config.SamplingStride,
		run.Config.AmplitudeThreshold, run.Config.RateThreshold, string(run.Config.PeakPolicy),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	countStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spike_counts (run_id, recording, sweep, count, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare spike count insert: %w", err)
	}
	defer countStmt.Close()

	for pos, row := range run.Counts {
		for i, sweep := range row.Sweeps {
			if _, err := countStmt.ExecContext(ctx, run.ID.String(), row.Recording, sweep, row.Counts[i], pos); err != nil {
				return fmt.Errorf("failed to insert spike count: %w", err)
			}
		}
	}

	rbStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rheobase (run_id, recording, found, sweep, current_pa, threshold_mv, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare rheobase insert: %w", err)
	}
	defer rbStmt.Close()

	for i, row := range run.Rheobase {
		_, err := rbStmt.ExecContext(ctx, run.ID.String(), row.Recording, row.Found, row.Sweep,
			row.CurrentPA, row.ThresholdMV, i)
		if err != nil {
			return fmt.Errorf("failed to insert rheobase: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Infow("saved analysis run", "run", run.ID, "counts", len(run.Counts), "rheobase", len(run.Rheobase))
	return nil
}

// LoadRun reads back a saved run
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	run := &storage.Run{ID: id}
	var created, policy string

	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, sampling_stride, amplitude_threshold, rate_threshold, peak_policy
		 FROM analysis_runs WHERE id = ?`, id.String(),
	).Scan(&created, &run.Config.SamplingStride, &run.Config.AmplitudeThreshold, &run.Config.RateThreshold, &policy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.Config.PeakPolicy = types.PeakPolicy(policy)
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("bad run timestamp %q: %w", created, err)
	}

	if run.Counts, err = s.loadCounts(ctx, id); err != nil {
		return nil, err
	}
	if run.Rheobase, err = s.loadRheobase(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadCounts(ctx context.Context, id uuid.UUID) ([]batch.CountRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recording, sweep, count FROM spike_counts
		 WHERE run_id = ? ORDER BY position, sweep`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query spike counts: %w", err)
	}
	defer rows.Close()

	var out []batch.CountRow
	for rows.Next() {
		var recording string
		var sweep, count int
		if err := rows.Scan(&recording, &sweep, &count); err != nil {
			return nil, fmt.Errorf("failed to scan spike count row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Recording != recording {
			out = append(out, batch.CountRow{Recording: recording})
		}
		last := &out[len(out)-1]
		last.Sweeps = append(last.Sweeps, sweep)
		last.Counts = append(last.Counts, count)
	}
	return out, rows.Err()
}

func (s *Store) loadRheobase(ctx context.Context, id uuid.UUID) ([]batch.RheobaseRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recording, found, sweep, current_pa, threshold_mv
		 FROM rheobase WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query rheobase: %w", err)
	}
	defer rows.Close()

	var out []batch.RheobaseRow
	for rows.Next() {
		var row batch.RheobaseRow
		if err := rows.Scan(&row.Recording, &row.Found, &row.Sweep, &row.CurrentPA, &row.ThresholdMV); err != nil {
			return nil, fmt.Errorf("failed to scan rheobase row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
