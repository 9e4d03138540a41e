package spike

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/types"
	"gonum.org/v1/gonum/floats"
)

// Find returns one spike event per detection run, in time order. A sweep without
// any qualifying sample yields an empty, non-nil slice.
func Find(tr, rate types.Trace, cfg types.AnalysisConfig) ([]types.SpikeEvent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runs, err := Segment(tr, rate, cfg.AmplitudeThreshold, cfg.RateThreshold)
	if err != nil {
		return nil, err
	}

	events := make([]types.SpikeEvent, 0, len(runs))
	for _, run := range runs {
		var (
			idx int
			ok  bool
		)
		switch cfg.PeakPolicy {
		case types.PeakZeroCrossing:
			idx, ok = zeroCrossingPeak(tr, rate, run)
		default:
			idx, ok = windowPeak(tr, run)
		}
		// Events must lie strictly inside the trace's time range
		if !ok || idx <= 0 || idx >= tr.Len()-1 {
			continue
		}

		// Two runs can resolve to the same sample under the zero-crossing policy
		if n := len(events); n > 0 && events[n-1].Index >= idx {
			continue
		}
		events = append(events, types.SpikeEvent{
			Time:      tr.Time[idx],
			Amplitude: tr.Value[idx],
			Index:     idx,
		})
	}
	return events, nil
}

// windowPeak picks the larger of the run's last sample and the one following
// it. A run ending on the final sample has no window and yields no peak.
func windowPeak(tr types.Trace, run Run) (int, bool) {
	if run.Last+1 >= tr.Len() {
		return 0, false
	}
	return run.Last + floats.MaxIdx(tr.Value[run.Last:run.Last+2]), true
}

// zeroCrossingPeak walks forward from the end of the run to the first sample
// whose rate is negative. If the rate never turns negative the largest value
// between the run end and the final sample (exclusive) is used instead.
func zeroCrossingPeak(tr, rate types.Trace, run Run) (int, bool) {
	last := rate.Len() - 1
	for i := run.Last + 1; i < last; i++ {
		if rate.Value[i] < 0 {
			return i, true
		}
	}
	if run.Last >= last {
		return 0, false
	}
	return run.Last + floats.MaxIdx(tr.Value[run.Last:last]), true
}

// Threshold returns the voltage at the first sample whose rate reaches rateThreshold
func Threshold(tr, rate types.Trace, rateThreshold float64) (float64, error) {
	idx, err := thresholdIndex(tr, rate, rateThreshold)
	if err != nil {
		return 0, err
	}
	return tr.Value[idx], nil
}

func thresholdIndex(tr, rate types.Trace, rateThreshold float64) (int, error) {
	if tr.Len() != rate.Len() {
		return 0, fmt.Errorf("%w: trace has %d samples but rate has %d", types.ErrInvalidTrace, tr.Len(), rate.Len())
	}
	for i, r := range rate.Value {
		if r >= rateThreshold {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: rate never reaches %g", types.ErrNoSpikeFound, rateThreshold)
}

// HalfWidth measures the duration of the first spike at half the distance
// between its threshold and its amplitude. The result is in trace time units.
func HalfWidth(tr, rate types.Trace, spikes []types.SpikeEvent, rateThreshold float64) (float64, error) {
	if len(spikes) == 0 {
		return 0, fmt.Errorf("%w: half-width needs at least one spike", types.ErrNoSpikeFound)
	}
	threshold, err := Threshold(tr, rate, rateThreshold)
	if err != nil {
		return 0, err
	}

	first := spikes[0]
	half := 0.5 * (first.Amplitude + threshold)

	start := -1
	for i := range tr.Value {
		if rate.Value[i] >= rateThreshold && tr.Value[i] >= half {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, fmt.Errorf("%w: rising phase never reaches half amplitude %g", types.ErrIndexOutOfRange, half)
	}

	end := -1
	for i := range tr.Value {
		if tr.Time[i] >= first.Time && tr.Value[i] < half {
			end = i
			break
		}
	}
	if end < 0 {
		return 0, fmt.Errorf("%w: trace never falls below half amplitude %g after %gs", types.ErrIndexOutOfRange, half, first.Time)
	}

	return tr.Time[end] - tr.Time[start], nil
}
