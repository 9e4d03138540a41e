// Package analysis binds a recording to an analysis configuration and exposes
// per-sweep spike, threshold and stimulus measurements.
package analysis

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/spike"
	"github.com/chrissnell/apanalyzer/internal/stimulus"
	"github.com/chrissnell/apanalyzer/internal/trace"
	"github.com/chrissnell/apanalyzer/internal/types"
)

// Analyzer measures the sweeps of one recording. It holds no mutable state:
// every call reads the sweep again and recomputes from scratch, so an Analyzer
// may be shared between goroutines as long as its reader allows concurrent reads.
type Analyzer struct {
	reader recording.SweepReader
	cfg    types.AnalysisConfig
}

// New validates cfg and returns an Analyzer over reader
func New(reader recording.SweepReader, cfg types.AnalysisConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PeakPolicy == "" {
		cfg.PeakPolicy = types.PeakWindow
	}
	return &Analyzer{reader: reader, cfg: cfg}, nil
}

// Config returns the analysis configuration in use
func (a *Analyzer) Config() types.AnalysisConfig {
	return a.cfg
}

// Sweeps returns the recording's sweeps in recorded order
func (a *Analyzer) Sweeps() []int {
	return a.reader.Sweeps()
}

func (a *Analyzer) read(sweep int, channel types.Channel) (types.Trace, error) {
	tr, err := a.reader.ReadSweep(sweep, channel)
	if err != nil {
		return types.Trace{}, err
	}
	if a.cfg.Stride() > 1 {
		return trace.Sample(tr, a.cfg.Stride())
	}
	return tr, nil
}

// Trace returns the (possibly downsampled) voltage trace of a sweep
func (a *Analyzer) Trace(sweep int) (types.Trace, error) {
	return a.read(sweep, types.VoltageChannel)
}

// Current returns the (possibly downsampled) current trace of a sweep
func (a *Analyzer) Current(sweep int) (types.Trace, error) {
	return a.read(sweep, types.CurrentChannel)
}

// Rate returns dV/dt of a sweep in mV/ms
func (a *Analyzer) Rate(sweep int) (types.Trace, error) {
	tr, err := a.Trace(sweep)
	if err != nil {
		return types.Trace{}, err
	}
	return trace.Derivative(tr), nil
}

// Shape returns d²V/dt² of a sweep in mV/ms²
func (a *Analyzer) Shape(sweep int) (types.Trace, error) {
	rate, err := a.Rate(sweep)
	if err != nil {
		return types.Trace{}, err
	}
	return trace.Derivative(rate), nil
}

func (a *Analyzer) traceAndRate(sweep int) (types.Trace, types.Trace, error) {
	tr, err := a.Trace(sweep)
	if err != nil {
		return types.Trace{}, types.Trace{}, err
	}
	return tr, trace.Derivative(tr), nil
}

// FindSpikes returns the spikes of a sweep. No spikes is an empty result, not an error.
func (a *Analyzer) FindSpikes(sweep int) ([]types.SpikeEvent, error) {
	tr, rate, err := a.traceAndRate(sweep)
	if err != nil {
		return nil, err
	}
	return spike.Find(tr, rate, a.cfg)
}

// APThreshold returns the voltage at which the sweep's rate first reaches the
// rate threshold. It fails with types.ErrNoSpikeFound on a sweep that never does.
func (a *Analyzer) APThreshold(sweep int) (float64, error) {
	tr, rate, err := a.traceAndRate(sweep)
	if err != nil {
		return 0, err
	}
	v, err := spike.Threshold(tr, rate, a.cfg.RateThreshold)
	if err != nil {
		return 0, fmt.Errorf("sweep %d: %w", sweep, err)
	}
	return v, nil
}

// HalfWidth returns the half-amplitude duration (s) of the sweep's first spike
func (a *Analyzer) HalfWidth(sweep int) (float64, error) {
	tr, rate, err := a.traceAndRate(sweep)
	if err != nil {
		return 0, err
	}
	spikes, err := spike.Find(tr, rate, a.cfg)
	if err != nil {
		return 0, err
	}
	hw, err := spike.HalfWidth(tr, rate, spikes, a.cfg.RateThreshold)
	if err != nil {
		return 0, fmt.Errorf("sweep %d: %w", sweep, err)
	}
	return hw, nil
}

// FindCurrentStep returns the plateau window of the sweep's current step
func (a *Analyzer) FindCurrentStep(sweep int) (types.StepWindow, error) {
	current, err := a.Current(sweep)
	if err != nil {
		return types.StepWindow{}, err
	}
	w, err := stimulus.FindStep(current)
	if err != nil {
		return types.StepWindow{}, fmt.Errorf("sweep %d: %w", sweep, err)
	}
	return w, nil
}

// MeasureCurrent returns the sweep's baseline-subtracted stimulus amplitude (pA)
func (a *Analyzer) MeasureCurrent(sweep int) (float64, error) {
	current, err := a.Current(sweep)
	if err != nil {
		return 0, err
	}
	w, err := stimulus.FindStep(current)
	if err != nil {
		return 0, fmt.Errorf("sweep %d: %w", sweep, err)
	}
	amp, err := stimulus.MeasureAmplitude(current, w)
	if err != nil {
		return 0, fmt.Errorf("sweep %d: %w", sweep, err)
	}
	return amp, nil
}
