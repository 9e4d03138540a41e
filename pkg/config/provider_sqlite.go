package config

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/log"
	"github.com/chrissnell/apanalyzer/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultConfigName = "default"

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the config database at dbPath and brings its schema up to date
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "config_schema_migrations"), log.GetSugaredLogger())
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	analysis, err := s.GetAnalysisConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis config: %w", err)
	}
	config.Analysis = *analysis

	recordings, err := s.GetRecordings()
	if err != nil {
		return nil, fmt.Errorf("failed to load recordings: %w", err)
	}
	config.Recordings = recordings

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	if err := s.loadREST(config); err != nil {
		return nil, fmt.Errorf("failed to load REST config: %w", err)
	}
	if err := s.loadRuntime(config); err != nil {
		return nil, fmt.Errorf("failed to load runtime config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetAnalysisConfig returns the analysis section. A missing row yields defaults.
func (s *SQLiteProvider) GetAnalysisConfig() (*AnalysisData, error) {
	query := `
		SELECT sampling_stride, amplitude_threshold, rate_threshold, peak_policy
		FROM analysis_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = ?)
	`

	var analysis AnalysisData
	var amplitude, rate sql.NullFloat64
	var policy sql.NullString

	err := s.db.QueryRow(query, defaultConfigName).Scan(&analysis.SamplingStride, &amplitude, &rate, &policy)
	if err == sql.ErrNoRows {
		return &analysis, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis config: %w", err)
	}

	if amplitude.Valid {
		analysis.AmplitudeThreshold = &amplitude.Float64
	}
	if rate.Valid {
		analysis.RateThreshold = &rate.Float64
	}
	if policy.Valid {
		analysis.PeakPolicy = policy.String
	}
	return &analysis, nil
}

// GetRecordings returns recordings in their configured order
func (s *SQLiteProvider) GetRecordings() ([]RecordingData, error) {
	query := `
		SELECT id, path FROM recordings
		WHERE config_id = (SELECT id FROM configs WHERE name = ?)
		ORDER BY position
	`

	rows, err := s.db.Query(query, defaultConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	var recordings []RecordingData
	for rows.Next() {
		var r RecordingData
		if err := rows.Scan(&r.ID, &r.Path); err != nil {
			return nil, fmt.Errorf("failed to scan recording row: %w", err)
		}
		recordings = append(recordings, r)
	}
	return recordings, rows.Err()
}

// GetStorageConfig returns the enabled result store backends
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend_type, sqlite_path, timescale_connection_string
		FROM storage_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = ?) AND enabled = 1
	`

	rows, err := s.db.Query(query, defaultConfigName)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var sqlitePath, connectionString sql.NullString

		if err := rows.Scan(&backendType, &sqlitePath, &connectionString); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "sqlite":
			if sqlitePath.Valid {
				storage.SQLite = &SQLiteData{Path: sqlitePath.String}
			}
		case "timescaledb":
			if connectionString.Valid {
				storage.TimescaleDB = &TimescaleDBData{ConnectionString: connectionString.String}
			}
		}
	}
	return storage, rows.Err()
}

func (s *SQLiteProvider) loadREST(config *ConfigData) error {
	query := `
		SELECT cert_file, key_file, port, listen_addr FROM rest_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = ?)
	`

	var cert, key, listenAddr sql.NullString
	var port sql.NullInt64
	err := s.db.QueryRow(query, defaultConfigName).Scan(&cert, &key, &port, &listenAddr)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	config.REST = RESTServerData{
		Cert:       cert.String,
		Key:        key.String,
		Port:       int(port.Int64),
		ListenAddr: listenAddr.String,
	}
	return nil
}

func (s *SQLiteProvider) loadRuntime(config *ConfigData) error {
	query := `
		SELECT batch_workers, log_file, log_max_size_mb, log_max_backups, log_max_age_days
		FROM runtime_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = ?)
	`

	var workers, maxSize, maxBackups, maxAge sql.NullInt64
	var logFile sql.NullString
	err := s.db.QueryRow(query, defaultConfigName).Scan(&workers, &logFile, &maxSize, &maxBackups, &maxAge)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	config.Batch.Workers = int(workers.Int64)
	config.Log = LogData{
		File:       logFile.String,
		MaxSizeMB:  int(maxSize.Int64),
		MaxBackups: int(maxBackups.Int64),
		MaxAgeDays: int(maxAge.Int64),
	}
	return nil
}

// IsReadOnly returns false since SQLite supports write operations
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write methods for configuration management

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	if err := configData.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return err
	}

	if err := s.clearExistingConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	a := configData.Analysis
	_, err = tx.Exec(`
		INSERT INTO analysis_configs (config_id, sampling_stride, amplitude_threshold, rate_threshold, peak_policy)
		VALUES (?, ?, ?, ?, ?)`,
		configID, a.SamplingStride, nullFloat64Ptr(a.AmplitudeThreshold), nullFloat64Ptr(a.RateThreshold), nullString(a.PeakPolicy))
	if err != nil {
		return fmt.Errorf("failed to insert analysis config: %w", err)
	}

	for i, r := range configData.Recordings {
		if _, err := tx.Exec(`INSERT INTO recordings (config_id, id, path, position) VALUES (?, ?, ?, ?)`,
			configID, r.ID, r.Path, i); err != nil {
			return fmt.Errorf("failed to insert recording %s: %w", r.ID, err)
		}
	}

	if err := s.insertStorageConfigs(tx, configID, &configData.Storage); err != nil {
		return fmt.Errorf("failed to insert storage configs: %w", err)
	}

	rest := configData.REST
	_, err = tx.Exec(`INSERT INTO rest_configs (config_id, cert_file, key_file, port, listen_addr) VALUES (?, ?, ?, ?, ?)`,
		configID, nullString(rest.Cert), nullString(rest.Key), nullInt(rest.Port), nullString(rest.ListenAddr))
	if err != nil {
		return fmt.Errorf("failed to insert REST config: %w", err)
	}

	lg := configData.Log
	_, err = tx.Exec(`
		INSERT INTO runtime_configs (config_id, batch_workers, log_file, log_max_size_mb, log_max_backups, log_max_age_days)
		VALUES (?, ?, ?, ?, ?, ?)`,
		configID, nullInt(configData.Batch.Workers), nullString(lg.File),
		nullInt(lg.MaxSizeMB), nullInt(lg.MaxBackups), nullInt(lg.MaxAgeDays))
	if err != nil {
		return fmt.Errorf("failed to insert runtime config: %w", err)
	}

	return tx.Commit()
}

// AddRecording appends a recording to the stored list
func (s *SQLiteProvider) AddRecording(r RecordingData) error {
	if r.ID == "" || r.Path == "" {
		return fmt.Errorf("recording needs both id and path")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO recordings (config_id, id, path, position)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM recordings WHERE config_id = ?))`,
		configID, r.ID, r.Path, configID)
	if err != nil {
		return fmt.Errorf("failed to add recording %s: %w", r.ID, err)
	}
	return tx.Commit()
}

// DeleteRecording removes a recording by ID
func (s *SQLiteProvider) DeleteRecording(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM recordings
		WHERE config_id = (SELECT id FROM configs WHERE name = ?) AND id = ?`, defaultConfigName, id)
	if err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("recording %s not found", id)
	}
	return nil
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	queries := []string{
		"DELETE FROM analysis_configs WHERE config_id = ?",
		"DELETE FROM recordings WHERE config_id = ?",
		"DELETE FROM storage_configs WHERE config_id = ?",
		"DELETE FROM rest_configs WHERE config_id = ?",
		"DELETE FROM runtime_configs WHERE config_id = ?",
	}

	for _, query := range queries {
		if _, err := tx.Exec(query, configID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertStorageConfigs(tx *sql.Tx, configID int64, storage *StorageData) error {
	if storage.SQLite != nil {
		_, err := tx.Exec(`INSERT INTO storage_configs (config_id, backend_type, enabled, sqlite_path) VALUES (?, 'sqlite', 1, ?)`,
			configID, storage.SQLite.Path)
		if err != nil {
			return err
		}
	}
	if storage.TimescaleDB != nil {
		_, err := tx.Exec(`INSERT INTO storage_configs (config_id, backend_type, enabled, timescale_connection_string) VALUES (?, 'timescaledb', 1, ?)`,
			configID, storage.TimescaleDB.ConnectionString)
		if err != nil {
			return err
		}
	}
	return nil
}

// getOrCreateConfigID gets existing config ID or creates a new one
func (s *SQLiteProvider) getOrCreateConfigID(tx *sql.Tx) (int64, error) {
	var configID int64
	err := tx.QueryRow("SELECT id FROM configs WHERE name = ?", defaultConfigName).Scan(&configID)
	if err == nil {
		_, err = tx.Exec("UPDATE configs SET updated_at = datetime('now') WHERE id = ?", configID)
		return configID, err
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := tx.Exec(`INSERT INTO configs (name, created_at, updated_at) VALUES (?, datetime('now'), datetime('now'))`, defaultConfigName)
	if err != nil {
		return 0, fmt.Errorf("failed to create default config: %w", err)
	}
	return result.LastInsertId()
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
