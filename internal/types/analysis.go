package types

import (
	"fmt"
	"math"
)

// PeakPolicy selects how a run of supra-threshold samples is turned into a spike event
type PeakPolicy string

const (
	// PeakWindow takes the larger of the run's last sample and the sample after it
	PeakWindow PeakPolicy = "window"
	// PeakZeroCrossing walks forward from the run's end to the first sample with negative rate
	PeakZeroCrossing PeakPolicy = "zero-crossing"
)

const (
	// DefaultAmplitudeThreshold is the minimum voltage (mV) of a spike sample
	DefaultAmplitudeThreshold = 0.0
	// DefaultRateThreshold is the minimum dV/dt (mV/ms) of a spike sample
	DefaultRateThreshold = 5.0
)

// AnalysisConfig holds the detection parameters shared by every measurement on a
// recording. It is passed by value and never modified after validation.
type AnalysisConfig struct {
	// SamplingStride keeps every n-th sample when > 1. Zero means no downsampling.
	SamplingStride     int        `json:"sampling_stride,omitempty"`
	AmplitudeThreshold float64    `json:"amplitude_threshold"`
	RateThreshold      float64    `json:"rate_threshold"`
	PeakPolicy         PeakPolicy `json:"peak_policy,omitempty"`
}

// DefaultAnalysisConfig returns the standard detection parameters
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		AmplitudeThreshold: DefaultAmplitudeThreshold,
		RateThreshold:      DefaultRateThreshold,
		PeakPolicy:         PeakWindow,
	}
}

// Validate checks the configuration. Infinite thresholds are allowed; NaN is not,
// since no sample can ever compare against it.
func (c AnalysisConfig) Validate() error {
	if c.SamplingStride < 0 {
		return fmt.Errorf("%w: sampling stride must be positive, got %d", ErrInvalidConfig, c.SamplingStride)
	}
	if math.IsNaN(c.AmplitudeThreshold) || math.IsNaN(c.RateThreshold) {
		return fmt.Errorf("%w: thresholds must not be NaN", ErrInvalidConfig)
	}
	switch c.PeakPolicy {
	case "", PeakWindow, PeakZeroCrossing:
	default:
		return fmt.Errorf("%w: unknown peak policy %q", ErrInvalidConfig, c.PeakPolicy)
	}
	return nil
}

// Stride returns the effective sampling stride (1 when unset)
func (c AnalysisConfig) Stride() int {
	if c.SamplingStride == 0 {
		return 1
	}
	return c.SamplingStride
}
