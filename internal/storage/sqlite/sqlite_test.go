package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "results.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := types.DefaultAnalysisConfig()
	cfg.SamplingStride = 2
	run := storage.NewRun(cfg)
	run.Counts = []batch.CountRow{
		{Recording: "zeta", Sweeps: []int{0, 1, 2}, Counts: []int{0, 3, 7}},
		{Recording: "alpha", Sweeps: []int{4}, Counts: []int{1}},
	}
	run.Rheobase = []batch.RheobaseRow{
		{Recording: "zeta", Found: true, Sweep: 1, CurrentPA: 120, ThresholdMV: -48.5},
		{Recording: "alpha", Found: false},
	}

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	got, err := s.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadRun() error: %v", err)
	}

	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if got.Config != run.Config {
		t.Errorf("Config = %+v, want %+v", got.Config, run.Config)
	}
	if len(got.Counts) != 2 {
		t.Fatalf("got %d count rows, want 2", len(got.Counts))
	}
	if got.Counts[0].Recording != "zeta" || got.Counts[1].Recording != "alpha" {
		t.Errorf("count rows out of order: %q, %q", got.Counts[0].Recording, got.Counts[1].Recording)
	}
	if c := got.Counts[0].Counts; len(c) != 3 || c[0] != 0 || c[1] != 3 || c[2] != 7 {
		t.Errorf("zeta counts = %v, want [0 3 7]", c)
	}
	if len(got.Rheobase) != 2 {
		t.Fatalf("got %d rheobase rows, want 2", len(got.Rheobase))
	}
	if got.Rheobase[0] != run.Rheobase[0] {
		t.Errorf("rheobase[0] = %+v, want %+v", got.Rheobase[0], run.Rheobase[0])
	}
	if got.Rheobase[1].Found {
		t.Errorf("rheobase[1].Found = true, want false")
	}
}

func TestLoadMissingRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadRun(context.Background(), uuid.New())
	if !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("LoadRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestDuplicateRunRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := storage.NewRun(types.DefaultAnalysisConfig())
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("first SaveRun() error: %v", err)
	}
	if err := s.SaveRun(ctx, run); err == nil {
		t.Error("second SaveRun() with the same ID succeeded, want error")
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	logger := zap.NewNop().Sugar()

	s, err := New(path, logger)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	run := storage.NewRun(types.DefaultAnalysisConfig())
	if err := s.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}
	s.Close()

	s, err = New(path, logger)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()

	if _, err := s.LoadRun(context.Background(), run.ID); err != nil {
		t.Errorf("LoadRun() after reopen error: %v", err)
	}
}

var _ storage.ResultStore = (*Store)(nil)
