package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/chrissnell/apanalyzer/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func writeRecording(t *testing.T, dir, name string, p recording.SynthParams) string {
	t.Helper()
	rec, err := recording.Synthesize(p)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	path := filepath.Join(dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := recording.WriteCSV(f, rec); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	return path
}

func newTestApp(t *testing.T, withStore bool) *App {
	t.Helper()
	dir := t.TempDir()

	p := recording.DefaultSynthParams()
	p.Sweeps = 8
	p.Duration = 0.7
	quiet := p
	quiet.Sweeps = 3

	cfg := &config.ConfigData{
		Recordings: []config.RecordingData{
			{ID: "fires", Path: writeRecording(t, dir, "fires", p)},
			{ID: "quiet", Path: writeRecording(t, dir, "quiet", quiet)},
			{ID: "deleted", Path: filepath.Join(dir, "deleted.csv")},
		},
		Batch: config.BatchData{Workers: 2},
	}
	if withStore {
		cfg.Storage.SQLite = &config.SQLiteData{Path: filepath.Join(dir, "results.db")}
	}

	a, err := New(cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestCountPersistsRun(t *testing.T) {
	a := newTestApp(t, true)
	ctx := context.Background()

	run, err := a.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if len(run.Counts) != 2 {
		t.Fatalf("got %d count rows, want 2 (unopenable recording skipped)", len(run.Counts))
	}
	if run.Counts[0].Recording != "fires" || run.Counts[0].Counts[6] == 0 {
		t.Errorf("fires row = %+v, want spikes on sweep 6", run.Counts[0])
	}

	loaded, err := a.LoadRun(ctx, run.ID.String())
	if err != nil {
		t.Fatalf("LoadRun() error: %v", err)
	}
	if loaded.ID != run.ID || len(loaded.Counts) != 2 {
		t.Errorf("loaded run = %+v", loaded)
	}
}

func TestRheobaseSummary(t *testing.T) {
	a := newTestApp(t, false)

	run, summary, err := a.Rheobase(context.Background(), []string{"fires", "quiet"})
	if err != nil {
		t.Fatalf("Rheobase() error: %v", err)
	}
	if len(run.Rheobase) != 2 {
		t.Fatalf("got %d rows, want 2", len(run.Rheobase))
	}
	if !run.Rheobase[0].Found || run.Rheobase[0].CurrentPA != 120 {
		t.Errorf("fires row = %+v, want rheobase at 120 pA", run.Rheobase[0])
	}
	if run.Rheobase[1].Found {
		t.Errorf("quiet row = %+v, want not found", run.Rheobase[1])
	}
	if summary.Fired != 1 || summary.MeanCurrentPA != 120 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestLoadRunErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := newTestApp(t, true).LoadRun(ctx, "not-a-uuid"); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("bad id: error = %v, want ErrInvalidConfig", err)
	}
	if _, err := newTestApp(t, false).LoadRun(ctx, uuid.NewString()); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("no store: error = %v, want ErrInvalidConfig", err)
	}
}

func TestOpenRecordingUnknownID(t *testing.T) {
	a := newTestApp(t, false)

	_, err := a.OpenRecording("nope")
	var openErr *recording.OpenError
	if !errors.As(err, &openErr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenRecording() error = %v, want OpenError wrapping os.ErrNotExist", err)
	}
}
