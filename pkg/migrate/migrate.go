// Package migrate applies numbered SQL migrations to a SQLite database.
package migrate

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Latest targets the newest available migration
const Latest = -1

// ErrUnknownVersion is returned for a target that no migration produces
var ErrUnknownVersion = errors.New("unknown migration version")

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider defines how migrations are loaded and versions are tracked
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Step is one migration applied in one direction. After is the schema
// version recorded once the step commits.
type Step struct {
	Migration Migration
	Up        bool
	After     int
}

// SQL returns the statement the step executes
func (s Step) SQL() string {
	if s.Up {
		return s.Migration.Up
	}
	return s.Migration.Down
}

func (s Step) direction() string {
	if s.Up {
		return "up"
	}
	return "down"
}

// Plan orders the steps that take a schema at version current to version
// target. Version 0 is the empty schema; Latest resolves to the highest
// available version. Rolling back records the next lower available version,
// so gaps in the numbering are tolerated.
func Plan(available []Migration, current, target int) ([]Step, error) {
	sorted := slices.Clone(available)
	slices.SortFunc(sorted, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })

	if target == Latest {
		target = 0
		if len(sorted) > 0 {
			target = sorted[len(sorted)-1].Version
		}
	}
	if target != 0 && !slices.ContainsFunc(sorted, func(m Migration) bool { return m.Version == target }) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}

	var steps []Step
	switch {
	case target > current:
		for _, m := range sorted {
			if m.Version > current && m.Version <= target {
				steps = append(steps, Step{Migration: m, Up: true, After: m.Version})
			}
		}
	case target < current:
		for i := len(sorted) - 1; i >= 0; i-- {
			m := sorted[i]
			if m.Version <= target || m.Version > current {
				continue
			}
			after := 0
			if i > 0 {
				after = sorted[i-1].Version
			}
			steps = append(steps, Step{Migration: m, After: after})
		}
	}
	return steps, nil
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider
	logger   *zap.SugaredLogger
}

// NewMigrator creates a new migrator instance. A nil logger discards output.
func NewMigrator(db *sql.DB, provider MigrationProvider, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// MigrateUp applies every pending migration
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(Latest)
}

// MigrateDown rolls the schema back to target, which must be below the current version
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("cannot roll back from version %d to %d", current, target)
	}
	return m.MigrateTo(target)
}

// MigrateTo moves the schema up or down to target
func (m *Migrator) MigrateTo(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	available, err := m.provider.GetMigrations()
	if err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}

	steps, err := Plan(available, current, target)
	if err != nil {
		return err
	}
	for _, s := range steps {
		if err := m.apply(s); err != nil {
			return fmt.Errorf("migration %d %s: %w", s.Migration.Version, s.direction(), err)
		}
	}
	if len(steps) > 0 {
		m.logger.Infow("schema migrated", "from", current, "to", steps[len(steps)-1].After)
	}
	return nil
}

// CurrentVersion returns the schema version, creating the tracking table if needed
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}
	v, err := m.provider.GetCurrentVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return v, nil
}

// apply runs one step and records its version in a single transaction
func (m *Migrator) apply(s Step) error {
	stmt := s.SQL()
	if stmt == "" {
		return fmt.Errorf("no %s SQL", s.direction())
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return err
	}
	if err := m.provider.SetVersion(tx, s.After); err != nil {
		return fmt.Errorf("recording version %d: %w", s.After, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.Debugw("applied migration", "version", s.Migration.Version, "name", s.Migration.Name, "direction", s.direction())
	return nil
}
