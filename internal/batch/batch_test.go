package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/types"
)

// fakeOpener serves synthesized recordings by name; unknown names fail to open
func fakeOpener(t *testing.T, recs map[string]recording.SynthParams) recording.Opener {
	t.Helper()
	built := make(map[string]recording.SweepReader)
	for id, p := range recs {
		m, err := recording.Synthesize(p)
		if err != nil {
			t.Fatalf("unable to synthesize %s: %v", id, err)
		}
		built[id] = m
	}
	return func(id string) (recording.SweepReader, error) {
		r, ok := built[id]
		if !ok {
			return nil, &recording.OpenError{ID: id, Err: fmt.Errorf("no such file")}
		}
		return r, nil
	}
}

func shortParams(sweeps int) recording.SynthParams {
	p := recording.DefaultSynthParams()
	p.Sweeps = sweeps
	return p
}

func TestSpikeCountsSkipsUnopenableRecordings(t *testing.T) {
	open := fakeOpener(t, map[string]recording.SynthParams{"good.csv": shortParams(8)})
	r, err := NewRunner(open, types.DefaultAnalysisConfig(), 2, nil)
	if err != nil {
		t.Fatal(err)
	}

	rows, err := r.SpikeCounts(context.Background(), []string{"missing.csv", "good.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Recording != "good.csv" {
		t.Fatalf("expected a single row for good.csv, got %+v", rows)
	}
	if len(rows[0].Counts) != 8 {
		t.Fatalf("expected 8 counts, got %v", rows[0].Counts)
	}
	for i, c := range rows[0].Counts {
		if (i < 6 && c != 0) || (i >= 6 && c == 0) {
			t.Errorf("sweep %d: unexpected count %d", i, c)
		}
	}
}

func TestRheobaseStats(t *testing.T) {
	low := shortParams(10)
	high := shortParams(10)
	high.InputResistance = 400 // fires at half the current
	never := shortParams(4)

	open := fakeOpener(t, map[string]recording.SynthParams{"low": low, "high": high, "never": never})
	r, err := NewRunner(open, types.DefaultAnalysisConfig(), 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	ids := []string{"low", "gone", "high", "never"}
	rows, err := r.RheobaseStats(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows)
	}

	expected := []struct {
		id      string
		found   bool
		current float64
	}{
		{id: "low", found: true, current: 120},
		{id: "high", found: true, current: 60},
		{id: "never", found: false},
	}
	for i, e := range expected {
		row := rows[i]
		if row.Recording != e.id || row.Found != e.found || row.CurrentPA != e.current {
			t.Errorf("row %d: expected %s found=%v %v pA, got %+v", i, e.id, e.found, e.current, row)
		}
		if row.Found && math.Abs(row.ThresholdMV-(-50)) > 1e-9 {
			t.Errorf("row %d: expected threshold -50 mV, got %v", i, row.ThresholdMV)
		}
	}

	s := SummarizeRheobase(rows)
	if s.Recordings != 3 || s.Fired != 2 {
		t.Errorf("expected 3 recordings with 2 firing, got %+v", s)
	}
	if math.Abs(s.MeanCurrentPA-90) > 1e-9 {
		t.Errorf("expected mean rheobase 90 pA, got %v", s.MeanCurrentPA)
	}
	// Sample standard deviation of {120, 60}
	if math.Abs(s.StdDevCurrentPA-math.Sqrt(1800)) > 1e-9 {
		t.Errorf("expected stddev %v, got %v", math.Sqrt(1800), s.StdDevCurrentPA)
	}
}

// missingSweepReader lists a sweep it cannot read
type missingSweepReader struct {
	recording.SweepReader
}

func (m missingSweepReader) Sweeps() []int {
	return append(m.SweepReader.Sweeps(), 42)
}

func TestMissingSweepIsSkipped(t *testing.T) {
	rec, err := recording.Synthesize(shortParams(3))
	if err != nil {
		t.Fatal(err)
	}
	open := func(id string) (recording.SweepReader, error) {
		if id == "broken" {
			return missingSweepReader{rec}, nil
		}
		return rec, nil
	}

	r, _ := NewRunner(open, types.DefaultAnalysisConfig(), 1, nil)
	rows, err := r.SpikeCounts(context.Background(), []string{"broken", "fine"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Recording != "fine" {
		t.Errorf("expected only the readable recording, got %+v", rows)
	}
}

func TestCancelledBatch(t *testing.T) {
	open := fakeOpener(t, map[string]recording.SynthParams{"a": shortParams(2)})
	r, _ := NewRunner(open, types.DefaultAnalysisConfig(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.SpikeCounts(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.SamplingStride = -3
	if _, err := NewRunner(nil, cfg, 1, nil); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSummarizeRheobaseSingle(t *testing.T) {
	s := SummarizeRheobase([]RheobaseRow{{Found: true, CurrentPA: 80, ThresholdMV: -45}})
	if s.MeanCurrentPA != 80 || s.StdDevCurrentPA != 0 || s.MeanThresholdMV != -45 {
		t.Errorf("unexpected summary %+v", s)
	}
}
