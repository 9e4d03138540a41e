package types

import (
	"fmt"
	"math"
)

// Channel selects which signal of a sweep to read
type Channel int

const (
	// VoltageChannel is the membrane potential recording (mV)
	VoltageChannel Channel = 0
	// CurrentChannel is the injected command current (pA)
	CurrentChannel Channel = 1
)

func (c Channel) String() string {
	switch c {
	case VoltageChannel:
		return "voltage"
	case CurrentChannel:
		return "current"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Trace is a time-indexed series of samples. Time is in seconds and strictly
// increasing. A Trace is treated as immutable once built; functions that
// transform it return a new Trace.
type Trace struct {
	Time  []float64 `json:"time"`
	Value []float64 `json:"value"`
}

// NewTrace builds a Trace after checking that time and value line up and that
// time is strictly increasing.
func NewTrace(time, value []float64) (Trace, error) {
	if len(time) != len(value) {
		return Trace{}, fmt.Errorf("%w: %d time points but %d values", ErrInvalidTrace, len(time), len(value))
	}
	for i := 1; i < len(time); i++ {
		if !(time[i] > time[i-1]) {
			return Trace{}, fmt.Errorf("%w: time not strictly increasing at index %d (%g after %g)",
				ErrInvalidTrace, i, time[i], time[i-1])
		}
	}
	return Trace{Time: time, Value: value}, nil
}

// Len returns the number of samples in the trace
func (t Trace) Len() int {
	return len(t.Time)
}

// Start returns the first sample time, or NaN for an empty trace
func (t Trace) Start() float64 {
	if len(t.Time) == 0 {
		return math.NaN()
	}
	return t.Time[0]
}

// End returns the last sample time, or NaN for an empty trace
func (t Trace) End() float64 {
	if len(t.Time) == 0 {
		return math.NaN()
	}
	return t.Time[len(t.Time)-1]
}

// SameTimeBase reports whether other is sampled at exactly the same times
func (t Trace) SameTimeBase(other Trace) bool {
	if len(t.Time) != len(other.Time) {
		return false
	}
	for i := range t.Time {
		if t.Time[i] != other.Time[i] {
			return false
		}
	}
	return true
}

// SpikeEvent is a single detected action potential
type SpikeEvent struct {
	Time      float64 `json:"time"`
	Amplitude float64 `json:"amplitude"`
	// Index is the position of the event sample in the analysed trace
	Index int `json:"index"`
}

// StepWindow delimits the plateau of an injected current step. The zero
// value is an empty window.
type StepWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	First int     `json:"first"`
	Last  int     `json:"last"`
	Found bool    `json:"found"`
}

// Empty reports whether no step was found
func (w StepWindow) Empty() bool {
	return !w.Found
}
