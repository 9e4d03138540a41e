package config

import (
	"fmt"
	"runtime"

	"github.com/chrissnell/apanalyzer/internal/types"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetAnalysisConfig() (*AnalysisData, error)
	GetRecordings() ([]RecordingData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

const (
	DefaultListenAddr = "0.0.0.0"
	DefaultPort       = 8080
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Analysis   AnalysisData    `json:"analysis"`
	Recordings []RecordingData `json:"recordings"`
	Storage    StorageData     `json:"storage,omitempty"`
	REST       RESTServerData  `json:"rest,omitempty"`
	Batch      BatchData       `json:"batch,omitempty"`
	Log        LogData         `json:"log,omitempty"`
}

// AnalysisData holds detection parameters. Nil thresholds take the defaults.
type AnalysisData struct {
	SamplingStride     int      `json:"sampling_stride,omitempty"`
	AmplitudeThreshold *float64 `json:"amplitude_threshold,omitempty"`
	RateThreshold      *float64 `json:"rate_threshold,omitempty"`
	PeakPolicy         string   `json:"peak_policy,omitempty"`
}

// RecordingData names a recording file
type RecordingData struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// StorageData holds the configuration for the result store backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

type BatchData struct {
	Workers int `json:"workers,omitempty"`
}

type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// ToAnalysisConfig fills unset fields with defaults and validates the result
func (a AnalysisData) ToAnalysisConfig() (types.AnalysisConfig, error) {
	cfg := types.DefaultAnalysisConfig()
	cfg.SamplingStride = a.SamplingStride
	if a.AmplitudeThreshold != nil {
		cfg.AmplitudeThreshold = *a.AmplitudeThreshold
	}
	if a.RateThreshold != nil {
		cfg.RateThreshold = *a.RateThreshold
	}
	if a.PeakPolicy != "" {
		cfg.PeakPolicy = types.PeakPolicy(a.PeakPolicy)
	}
	if err := cfg.Validate(); err != nil {
		return types.AnalysisConfig{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills REST and batch settings left unset
func (c *ConfigData) ApplyDefaults() {
	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = DefaultListenAddr
	}
	if c.REST.Port == 0 {
		c.REST.Port = DefaultPort
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
}

// Validate checks cross-field constraints that the providers cannot
func (c *ConfigData) Validate() error {
	if _, err := c.Analysis.ToAnalysisConfig(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Recordings))
	for i, r := range c.Recordings {
		if r.ID == "" {
			return fmt.Errorf("%w: recording %d has no id", types.ErrInvalidConfig, i)
		}
		if r.Path == "" {
			return fmt.Errorf("%w: recording %q has no path", types.ErrInvalidConfig, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate recording id %q", types.ErrInvalidConfig, r.ID)
		}
		seen[r.ID] = true
	}

	if c.Storage.SQLite != nil && c.Storage.TimescaleDB != nil {
		return fmt.Errorf("%w: configure at most one result store", types.ErrInvalidConfig)
	}
	return nil
}

// RecordingPaths maps recording IDs to file paths
func (c *ConfigData) RecordingPaths() map[string]string {
	paths := make(map[string]string, len(c.Recordings))
	for _, r := range c.Recordings {
		paths[r.ID] = r.Path
	}
	return paths
}

// RecordingIDs returns recording IDs in configured order
func (c *ConfigData) RecordingIDs() []string {
	ids := make([]string, len(c.Recordings))
	for i, r := range c.Recordings {
		ids[i] = r.ID
	}
	return ids
}
