package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/chrissnell/apanalyzer/internal/types"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func float(f float64) *float64 { return &f }

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := writeYAML(t, `
analysis:
  sampling-stride: 2
  rate-threshold: 10
  peak-policy: zero-crossing
recordings:
  - id: cell1
    path: /data/cell1.csv
  - id: cell2
    path: /data/cell2.csv
storage:
  sqlite:
    path: /var/lib/apanalyzer/results.db
rest:
  port: 9090
batch:
  workers: 3
log:
  file: /var/log/apanalyzer.log
  max-backups: 4
`)

	p := NewYAMLProvider(path)
	defer p.Close()

	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	ac, err := cfg.Analysis.ToAnalysisConfig()
	if err != nil {
		t.Fatalf("ToAnalysisConfig() error: %v", err)
	}
	want := types.AnalysisConfig{
		SamplingStride:     2,
		AmplitudeThreshold: types.DefaultAmplitudeThreshold,
		RateThreshold:      10,
		PeakPolicy:         types.PeakZeroCrossing,
	}
	if ac != want {
		t.Errorf("analysis config = %+v, want %+v", ac, want)
	}

	if ids := cfg.RecordingIDs(); len(ids) != 2 || ids[0] != "cell1" || ids[1] != "cell2" {
		t.Errorf("RecordingIDs() = %v", ids)
	}
	if got := cfg.RecordingPaths()["cell2"]; got != "/data/cell2.csv" {
		t.Errorf("cell2 path = %q", got)
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "/var/lib/apanalyzer/results.db" {
		t.Errorf("sqlite storage = %+v", cfg.Storage.SQLite)
	}
	if cfg.REST.Port != 9090 || cfg.REST.ListenAddr != DefaultListenAddr {
		t.Errorf("rest = %+v, want port 9090 on default address", cfg.REST)
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Batch.Workers)
	}
	if cfg.Log.File != "/var/log/apanalyzer.log" || cfg.Log.MaxBackups != 4 {
		t.Errorf("log = %+v", cfg.Log)
	}
	if !p.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
}

func TestYAMLProviderDefaults(t *testing.T) {
	cfg, err := NewYAMLProvider(writeYAML(t, "recordings: []\n")).LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	ac, err := cfg.Analysis.ToAnalysisConfig()
	if err != nil {
		t.Fatalf("ToAnalysisConfig() error: %v", err)
	}
	if ac != types.DefaultAnalysisConfig() {
		t.Errorf("analysis config = %+v, want defaults", ac)
	}
	if cfg.REST.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.REST.Port, DefaultPort)
	}
	if cfg.Batch.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want NumCPU", cfg.Batch.Workers)
	}
}

func TestYAMLProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantConfig bool
	}{
		{"unknown key", "recordings: []\nbogus: 1\n", false},
		{"bad policy", "analysis:\n  peak-policy: median\n", true},
		{"negative stride", "analysis:\n  sampling-stride: -1\n", true},
		{"duplicate recording", "recordings:\n  - {id: a, path: x}\n  - {id: a, path: y}\n", true},
		{"recording without path", "recordings:\n  - {id: a}\n", true},
		{"two stores", "storage:\n  sqlite: {path: a.db}\n  timescaledb: {connection-string: x}\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLProvider(writeYAML(t, tt.body)).LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if got := errors.Is(err, types.ErrInvalidConfig); got != tt.wantConfig {
				t.Errorf("errors.Is(ErrInvalidConfig) = %v, want %v (err: %v)", got, tt.wantConfig, err)
			}
		})
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml")).LoadConfig()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestToAnalysisConfigExplicitZero(t *testing.T) {
	ac, err := AnalysisData{RateThreshold: float(0), AmplitudeThreshold: float(-20)}.ToAnalysisConfig()
	if err != nil {
		t.Fatalf("ToAnalysisConfig() error: %v", err)
	}
	if ac.RateThreshold != 0 || ac.AmplitudeThreshold != -20 {
		t.Errorf("thresholds = %v/%v, want 0/-20", ac.RateThreshold, ac.AmplitudeThreshold)
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider() error: %v", err)
	}
	defer p.Close()

	in := &ConfigData{
		Analysis: AnalysisData{SamplingStride: 4, RateThreshold: float(7.5)},
		Recordings: []RecordingData{
			{ID: "z", Path: "/d/z.csv"},
			{ID: "a", Path: "/d/a.csv"},
		},
		Storage: StorageData{TimescaleDB: &TimescaleDBData{ConnectionString: "host=db"}},
		REST:    RESTServerData{ListenAddr: "127.0.0.1", Port: 8181},
		Batch:   BatchData{Workers: 2},
		Log:     LogData{File: "/tmp/a.log", MaxSizeMB: 5},
	}
	if err := p.SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	// Saving twice replaces rather than duplicates
	if err := p.SaveConfig(in); err != nil {
		t.Fatalf("second SaveConfig() error: %v", err)
	}

	out, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if out.Analysis.SamplingStride != 4 || out.Analysis.RateThreshold == nil || *out.Analysis.RateThreshold != 7.5 {
		t.Errorf("analysis = %+v", out.Analysis)
	}
	if out.Analysis.AmplitudeThreshold != nil {
		t.Errorf("amplitude threshold = %v, want unset", *out.Analysis.AmplitudeThreshold)
	}
	if len(out.Recordings) != 2 || out.Recordings[0].ID != "z" || out.Recordings[1].ID != "a" {
		t.Errorf("recordings = %+v, want configured order", out.Recordings)
	}
	if out.Storage.TimescaleDB == nil || out.Storage.TimescaleDB.ConnectionString != "host=db" {
		t.Errorf("storage = %+v", out.Storage)
	}
	if out.REST.ListenAddr != "127.0.0.1" || out.REST.Port != 8181 {
		t.Errorf("rest = %+v", out.REST)
	}
	if out.Batch.Workers != 2 || out.Log.File != "/tmp/a.log" || out.Log.MaxSizeMB != 5 {
		t.Errorf("runtime = %+v %+v", out.Batch, out.Log)
	}
}

func TestSQLiteProviderEmptyDatabaseUsesDefaults(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider() error: %v", err)
	}
	defer p.Close()

	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if len(cfg.Recordings) != 0 {
		t.Errorf("recordings = %v, want none", cfg.Recordings)
	}
	if cfg.REST.Port != DefaultPort {
		t.Errorf("port = %d, want default", cfg.REST.Port)
	}
}

func TestSQLiteProviderRecordingManagement(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider() error: %v", err)
	}
	defer p.Close()

	for _, r := range []RecordingData{{ID: "b", Path: "b.csv"}, {ID: "a", Path: "a.csv"}} {
		if err := p.AddRecording(r); err != nil {
			t.Fatalf("AddRecording(%s) error: %v", r.ID, err)
		}
	}
	if err := p.AddRecording(RecordingData{ID: "b", Path: "other.csv"}); err == nil {
		t.Error("adding a duplicate recording succeeded")
	}
	if err := p.AddRecording(RecordingData{ID: "c"}); err == nil {
		t.Error("adding a recording without a path succeeded")
	}

	if err := p.DeleteRecording("b"); err != nil {
		t.Fatalf("DeleteRecording() error: %v", err)
	}
	if err := p.DeleteRecording("b"); err == nil {
		t.Error("deleting a missing recording succeeded")
	}

	recs, err := p.GetRecordings()
	if err != nil {
		t.Fatalf("GetRecordings() error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "a" {
		t.Errorf("recordings = %+v, want only a", recs)
	}
}

var (
	_ ConfigProvider = (*YAMLProvider)(nil)
	_ ConfigProvider = (*SQLiteProvider)(nil)
)
