package analysis

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/spike"
	"github.com/chrissnell/apanalyzer/internal/trace"
	"github.com/chrissnell/apanalyzer/internal/types"
)

// WaveformHalfWindow is the span (s) shown on either side of a spike
const WaveformHalfWindow = 0.005

// Waveform is the voltage, rate and shape around one spike
type Waveform struct {
	Spike   types.SpikeEvent `json:"spike"`
	Voltage types.Trace      `json:"voltage"`
	Rate    types.Trace      `json:"rate"`
	Shape   types.Trace      `json:"shape"`
}

// PhasePoint pairs a voltage with its rate of change
type PhasePoint struct {
	Voltage float64 `json:"v"`
	Rate    float64 `json:"dvdt"`
}

// selectSpike resolves n against the sweep's spikes; negative n counts from the end
func selectSpike(spikes []types.SpikeEvent, sweep, n int) (types.SpikeEvent, error) {
	if len(spikes) == 0 {
		return types.SpikeEvent{}, fmt.Errorf("sweep %d: %w", sweep, types.ErrNoSpikeFound)
	}
	i := n
	if i < 0 {
		i += len(spikes)
	}
	if i < 0 || i >= len(spikes) {
		return types.SpikeEvent{}, fmt.Errorf("%w: sweep %d has %d spikes, asked for %d",
			types.ErrIndexOutOfRange, sweep, len(spikes), n)
	}
	return spikes[i], nil
}

// SpikeWaveform returns the ±5 ms neighbourhood of spike n of a sweep
func (a *Analyzer) SpikeWaveform(sweep, n int) (Waveform, error) {
	tr, rate, err := a.traceAndRate(sweep)
	if err != nil {
		return Waveform{}, err
	}
	spikes, err := spike.Find(tr, rate, a.cfg)
	if err != nil {
		return Waveform{}, err
	}
	s, err := selectSpike(spikes, sweep, n)
	if err != nil {
		return Waveform{}, err
	}

	from, to := s.Time-WaveformHalfWindow, s.Time+WaveformHalfWindow
	return Waveform{
		Spike:   s,
		Voltage: trace.Window(tr, from, to),
		Rate:    trace.Window(rate, from, to),
		Shape:   trace.Window(trace.Derivative(rate), from, to),
	}, nil
}

// PhasePlot returns (V, dV/dt) pairs over the ±5 ms neighbourhood of spike n
func (a *Analyzer) PhasePlot(sweep, n int) ([]PhasePoint, error) {
	w, err := a.SpikeWaveform(sweep, n)
	if err != nil {
		return nil, err
	}
	points := make([]PhasePoint, w.Voltage.Len())
	for i := range points {
		points[i] = PhasePoint{Voltage: w.Voltage.Value[i], Rate: w.Rate.Value[i]}
	}
	return points, nil
}
