// Package database opens gorm connections to PostgreSQL/TimescaleDB.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/apanalyzer/internal/log"
	"go.uber.org/zap"
)

// NewGormLogger routes gorm's logging through the process zap logger
func NewGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// CreateConnection opens a connection to the database named by connectionString
func CreateConnection(connectionString string) (*gorm.DB, error) {
	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: NewGormLogger(logger.Warn)})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}
	log.Info("TimescaleDB connection successful")

	return db, nil
}
