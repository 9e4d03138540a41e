package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/chrissnell/apanalyzer/internal/types"
)

func TestPrintCounts(t *testing.T) {
	r := storage.NewRun(types.DefaultAnalysisConfig())
	r.Counts = []batch.CountRow{{Recording: "cell1", Sweeps: []int{0, 1, 2}, Counts: []int{0, 2, 5}}}

	var buf bytes.Buffer
	if err := printCounts(&buf, r); err != nil {
		t.Fatalf("printCounts() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, r.ID.String()) {
		t.Errorf("output missing run id:\n%s", out)
	}
	if !strings.Contains(out, "0 2 5") {
		t.Errorf("output missing per-sweep counts:\n%s", out)
	}
}

func TestPrintRheobase(t *testing.T) {
	r := storage.NewRun(types.DefaultAnalysisConfig())
	r.Rheobase = []batch.RheobaseRow{
		{Recording: "a", Found: true, Sweep: 6, CurrentPA: 120, ThresholdMV: -50},
		{Recording: "b"},
	}

	var buf bytes.Buffer
	if err := printRheobase(&buf, r, batch.SummarizeRheobase(r.Rheobase)); err != nil {
		t.Fatalf("printRheobase() error: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")

	var a, b string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "a "):
			a = l
		case strings.HasPrefix(l, "b "):
			b = l
		}
	}
	if !strings.Contains(a, "120") || !strings.Contains(a, "-50.00") {
		t.Errorf("row a = %q", a)
	}
	if !strings.Contains(b, "-") {
		t.Errorf("row b = %q, want dashes for a recording that never fired", b)
	}
	if !strings.Contains(buf.String(), "1 of 2 recordings fired") {
		t.Errorf("summary line missing:\n%s", buf.String())
	}
}
