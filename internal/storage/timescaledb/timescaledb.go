// Package timescaledb stores analysis runs in PostgreSQL with the TimescaleDB extension.
package timescaledb

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/database"
	"github.com/chrissnell/apanalyzer/internal/log"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Storage implements storage.ResultStore on TimescaleDB
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// New connects, migrates the result tables and converts spike_counts into a hypertable
func New(ctx context.Context, connectionString string) (*Storage, error) {
	conn, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}
	t := &Storage{TimescaleDBConn: conn}

	log.Info("creating TimescaleDB extension...")
	if err := conn.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		log.Warn("warning: could not create TimescaleDB extension")
		return nil, err
	}

	log.Info("migrating result tables...")
	if err := conn.WithContext(ctx).AutoMigrate(&runModel{}, &spikeCountModel{}, &rheobaseModel{}); err != nil {
		log.Warn("warning: could not migrate result tables")
		return nil, err
	}

	log.Info("creating hypertable...")
	if err := conn.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		log.Warn("warning: could not create hypertable")
		return nil, err
	}

	return t, nil
}

// SaveRun writes a run and its rows in one transaction
func (t *Storage) SaveRun(ctx context.Context, run *storage.Run) error {
	rm, counts, rheo := toModels(run)

	err := t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rm).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if len(counts) > 0 {
			if err := tx.CreateInBatches(counts, 500).Error; err != nil {
				return fmt.Errorf("could not store spike counts: %w", err)
			}
		}
		if len(rheo) > 0 {
			if err := tx.Create(&rheo).Error; err != nil {
				return fmt.Errorf("could not store rheobase rows: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("could not save analysis run:", err)
		return err
	}

	log.Infow("saved analysis run", "run", run.ID, "counts", len(run.Counts), "rheobase", len(run.Rheobase))
	return nil
}

// LoadRun reads back a saved run
func (t *Storage) LoadRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	db := t.TimescaleDBConn.WithContext(ctx)

	var rm runModel
	err := db.Where("id = ?", id.String()).First(&rm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var counts []spikeCountModel
	if err := db.Where("run_id = ?", rm.ID).Order("position, sweep").Find(&counts).Error; err != nil {
		return nil, err
	}

	var rheo []rheobaseModel
	if err := db.Where("run_id = ?", rm.ID).Order("position").Find(&rheo).Error; err != nil {
		return nil, err
	}

	return fromModels(rm, counts, rheo)
}

// Close releases the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
