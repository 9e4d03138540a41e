// Package batch runs the analysis over many recordings and collects one summary
// row per recording that could be opened.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/chrissnell/apanalyzer/internal/analysis"
	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Runner analyses recordings in parallel, one pool task per recording
type Runner struct {
	open    recording.Opener
	cfg     types.AnalysisConfig
	workers int
	logger  *zap.SugaredLogger
}

// NewRunner creates a batch runner. workers <= 0 uses one worker per CPU.
func NewRunner(open recording.Opener, cfg types.AnalysisConfig, workers int, logger *zap.SugaredLogger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{open: open, cfg: cfg, workers: workers, logger: logger}, nil
}

// CountRow holds the spike count of every sweep of one recording
type CountRow struct {
	Recording string `json:"recording"`
	Sweeps    []int  `json:"sweeps"`
	Counts    []int  `json:"counts"`
}

// RheobaseRow holds the rheobase current and the AP threshold at that sweep.
// Found is false for a recording that never fired.
type RheobaseRow struct {
	Recording   string  `json:"recording"`
	Found       bool    `json:"found"`
	Sweep       int     `json:"sweep"`
	CurrentPA   float64 `json:"current_pa"`
	ThresholdMV float64 `json:"threshold_mv"`
}

// SpikeCounts counts spikes on every sweep of every recording
func (r *Runner) SpikeCounts(ctx context.Context, ids []string) ([]CountRow, error) {
	return runEach(ctx, r, ids, func(id string, a *analysis.Analyzer) (CountRow, error) {
		row := CountRow{Recording: id, Sweeps: a.Sweeps(), Counts: make([]int, 0, len(a.Sweeps()))}
		for _, sweep := range row.Sweeps {
			spikes, err := a.FindSpikes(sweep)
			if err != nil {
				return CountRow{}, err
			}
			row.Counts = append(row.Counts, len(spikes))
		}
		return row, nil
	})
}

// RheobaseStats finds the rheobase sweep of every recording and measures the AP
// threshold there
func (r *Runner) RheobaseStats(ctx context.Context, ids []string) ([]RheobaseRow, error) {
	return runEach(ctx, r, ids, func(id string, a *analysis.Analyzer) (RheobaseRow, error) {
		rb, ok, err := a.FindRheobase()
		if err != nil {
			return RheobaseRow{}, err
		}
		if !ok {
			r.logger.Infow("recording never fired", "recording", id)
			return RheobaseRow{Recording: id}, nil
		}
		thr, err := a.APThreshold(rb.Sweep)
		if err != nil {
			return RheobaseRow{}, err
		}
		return RheobaseRow{
			Recording:   id,
			Found:       true,
			Sweep:       rb.Sweep,
			CurrentPA:   rb.CurrentPA,
			ThresholdMV: thr,
		}, nil
	})
}

type outcome[T any] struct {
	row     T
	skipped bool
	err     error
}

// runEach applies fn to every recording on the runner's pool and returns rows in
// input order. Recordings that fail to open, or that report a missing sweep,
// are logged and skipped. Any other error aborts the batch.
func runEach[T any](ctx context.Context, r *Runner, ids []string, fn func(string, *analysis.Analyzer) (T, error)) ([]T, error) {
	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("unable to create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]outcome[T], len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = process(ctx, r, id, fn)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("unable to schedule %s: %w", id, err)
		}
	}
	wg.Wait()

	rows := make([]T, 0, len(ids))
	for i, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("recording %s: %w", ids[i], res.err)
		}
		if !res.skipped {
			rows = append(rows, res.row)
		}
	}
	return rows, nil
}

func process[T any](ctx context.Context, r *Runner, id string, fn func(string, *analysis.Analyzer) (T, error)) outcome[T] {
	if err := ctx.Err(); err != nil {
		return outcome[T]{err: err}
	}

	reader, err := r.open(id)
	if err != nil {
		r.logger.Warnw("skipping recording that failed to open", "recording", id, "error", err)
		return outcome[T]{skipped: true}
	}

	a, err := analysis.New(reader, r.cfg)
	if err != nil {
		return outcome[T]{err: err}
	}

	row, err := fn(id, a)
	if errors.Is(err, types.ErrSweepNotFound) {
		r.logger.Warnw("skipping recording with missing sweep", "recording", id, "error", err)
		return outcome[T]{skipped: true}
	}
	if err != nil {
		return outcome[T]{err: err}
	}

	r.logger.Debugw("finished processing recording", "recording", id)
	return outcome[T]{row: row}
}
