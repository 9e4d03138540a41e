package analysis

import (
	"errors"

	"github.com/chrissnell/apanalyzer/internal/types"
)

// Rheobase identifies the first sweep of a recording that fired
type Rheobase struct {
	Sweep     int     `json:"sweep"`
	CurrentPA float64 `json:"current_pa"`
}

// FindRheobase scans sweeps in recorded order and returns the first one with at
// least one spike. ok is false when no sweep ever fires.
func (a *Analyzer) FindRheobase() (r Rheobase, ok bool, err error) {
	for _, sweep := range a.Sweeps() {
		spikes, err := a.FindSpikes(sweep)
		if err != nil {
			return Rheobase{}, false, err
		}
		if len(spikes) == 0 {
			continue
		}
		current, err := a.MeasureCurrent(sweep)
		if err != nil {
			return Rheobase{}, false, err
		}
		return Rheobase{Sweep: sweep, CurrentPA: current}, true, nil
	}
	return Rheobase{}, false, nil
}

// FIPoint is one point of a current/spike-count (F-I) curve
type FIPoint struct {
	Sweep     int     `json:"sweep"`
	CurrentPA float64 `json:"current_pa"`
	Spikes    int     `json:"spikes"`
	// StepError is set, and CurrentPA is zero, when the stimulus could not be
	// measured, for example on a sweep with a hyperpolarising step.
	StepError string `json:"step_error,omitempty"`
}

// FICurve counts spikes and measures the stimulus on every sweep. Sweeps whose
// stimulus violates the single-step assumption keep their spike count and
// report the violation in StepError.
func (a *Analyzer) FICurve() ([]FIPoint, error) {
	points := make([]FIPoint, 0, len(a.Sweeps()))
	for _, sweep := range a.Sweeps() {
		spikes, err := a.FindSpikes(sweep)
		if err != nil {
			return nil, err
		}
		p := FIPoint{Sweep: sweep, Spikes: len(spikes)}

		current, err := a.MeasureCurrent(sweep)
		switch {
		case err == nil:
			p.CurrentPA = current
		case errors.Is(err, types.ErrMultipleSteps), errors.Is(err, types.ErrIndexOutOfRange):
			p.StepError = err.Error()
		default:
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
