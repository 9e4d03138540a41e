package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

type analysisYAML struct {
	SamplingStride     int      `yaml:"sampling-stride,omitempty"`
	AmplitudeThreshold *float64 `yaml:"amplitude-threshold,omitempty"`
	RateThreshold      *float64 `yaml:"rate-threshold,omitempty"`
	PeakPolicy         string   `yaml:"peak-policy,omitempty"`
}

type recordingYAML struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

type storageYAML struct {
	SQLite *struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite,omitempty"`
	TimescaleDB *struct {
		ConnectionString string `yaml:"connection-string"`
	} `yaml:"timescaledb,omitempty"`
}

type restYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type logYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Analysis   analysisYAML    `yaml:"analysis,omitempty"`
		Recordings []recordingYAML `yaml:"recordings"`
		Storage    storageYAML     `yaml:"storage,omitempty"`
		REST       restYAML        `yaml:"rest,omitempty"`
		Batch      struct {
			Workers int `yaml:"workers,omitempty"`
		} `yaml:"batch,omitempty"`
		Log logYAML `yaml:"log,omitempty"`
	}

	err = yaml.UnmarshalStrict(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Analysis: AnalysisData{
			SamplingStride:     yamlConfig.Analysis.SamplingStride,
			AmplitudeThreshold: yamlConfig.Analysis.AmplitudeThreshold,
			RateThreshold:      yamlConfig.Analysis.RateThreshold,
			PeakPolicy:         yamlConfig.Analysis.PeakPolicy,
		},
		Recordings: make([]RecordingData, len(yamlConfig.Recordings)),
		REST: RESTServerData{
			Cert:       yamlConfig.REST.Cert,
			Key:        yamlConfig.REST.Key,
			Port:       yamlConfig.REST.Port,
			ListenAddr: yamlConfig.REST.ListenAddr,
		},
		Batch: BatchData{Workers: yamlConfig.Batch.Workers},
		Log: LogData{
			File:       yamlConfig.Log.File,
			MaxSizeMB:  yamlConfig.Log.MaxSizeMB,
			MaxBackups: yamlConfig.Log.MaxBackups,
			MaxAgeDays: yamlConfig.Log.MaxAgeDays,
		},
	}

	for i, r := range yamlConfig.Recordings {
		config.Recordings[i] = RecordingData{ID: r.ID, Path: r.Path}
	}

	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: yamlConfig.Storage.SQLite.Path}
	}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// GetAnalysisConfig returns the analysis section
func (y *YAMLProvider) GetAnalysisConfig() (*AnalysisData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Analysis, nil
}

// GetRecordings returns the configured recordings
func (y *YAMLProvider) GetRecordings() ([]RecordingData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Recordings, nil
}

// GetStorageConfig returns storage configuration from YAML
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only in this context
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
