package recording

import (
	"fmt"
	"math/rand"
)

// SynthParams describes a family of current-clamp sweeps produced by a leaky
// integrate-and-fire cell with a stereotyped action potential.
type SynthParams struct {
	Sweeps     int     // number of sweeps
	SampleRate float64 // Hz
	Duration   float64 // sweep length (s)
	StepOnset  float64 // s
	StepOffset float64 // s

	StartCurrent     float64 // first step amplitude (pA)
	CurrentIncrement float64 // step increment between sweeps (pA)

	RestingPotential float64 // mV
	SpikeThreshold   float64 // mV
	PeakPotential    float64 // mV
	ResetPotential   float64 // mV
	InputResistance  float64 // MΩ
	MembraneTau      float64 // s
	RiseTime         float64 // AP upstroke duration (s)
	FallTime         float64 // AP downstroke duration (s)

	// NoiseSD adds gaussian noise to the voltage (mV). Zero gives a clean trace.
	NoiseSD float64
	Seed    int64
}

// DefaultSynthParams returns a ten-sweep protocol, 0 to 180 pA in 20 pA steps,
// sampled at 20 kHz. The model cell first fires at 120 pA.
func DefaultSynthParams() SynthParams {
	return SynthParams{
		Sweeps:           10,
		SampleRate:       20000,
		Duration:         0.8,
		StepOnset:        0.1,
		StepOffset:       0.6,
		StartCurrent:     0,
		CurrentIncrement: 20,
		RestingPotential: -70,
		SpikeThreshold:   -50,
		PeakPotential:    30,
		ResetPotential:   -75,
		InputResistance:  200,
		MembraneTau:      0.02,
		RiseTime:         0.0005,
		FallTime:         0.0015,
		Seed:             1,
	}
}

// StepCurrent returns the step amplitude (pA) of a sweep
func (p SynthParams) StepCurrent(sweep int) float64 {
	return p.StartCurrent + float64(sweep)*p.CurrentIncrement
}

// Synthesize builds an in-memory recording from p
func Synthesize(p SynthParams) (*Memory, error) {
	if p.Sweeps <= 0 || p.SampleRate <= 0 || p.Duration <= 0 {
		return nil, fmt.Errorf("sweeps, sample rate and duration must be positive")
	}
	if p.MembraneTau <= 0 || p.RiseTime <= 0 || p.FallTime <= 0 {
		return nil, fmt.Errorf("membrane tau and spike rise/fall times must be positive")
	}

	rng := rand.New(rand.NewSource(p.Seed))
	n := int(p.Duration * p.SampleRate)
	dt := 1 / p.SampleRate

	m := NewMemory()
	for sweep := 0; sweep < p.Sweeps; sweep++ {
		tm := make([]float64, n)
		v := make([]float64, n)
		c := make([]float64, n)

		step := p.StepCurrent(sweep)
		vm := p.RestingPotential
		// Time left in the current spike phase; zero while integrating
		var rising, falling float64

		for i := 0; i < n; i++ {
			t := float64(i) * dt
			tm[i] = t
			if t >= p.StepOnset && t < p.StepOffset {
				c[i] = step
			}

			switch {
			case rising > 0:
				vm += (p.PeakPotential - p.SpikeThreshold) * dt / p.RiseTime
				rising -= dt
				if rising <= dt/2 {
					rising = 0
					vm = p.PeakPotential
					falling = p.FallTime
				}
			case falling > 0:
				vm -= (p.PeakPotential - p.ResetPotential) * dt / p.FallTime
				falling -= dt
				if falling <= dt/2 {
					falling = 0
					vm = p.ResetPotential
				}
			default:
				vInf := p.RestingPotential + p.InputResistance*c[i]/1000
				vm += (vInf - vm) * dt / p.MembraneTau
				if vm >= p.SpikeThreshold {
					vm = p.SpikeThreshold
					rising = p.RiseTime
				}
			}

			v[i] = vm
			if p.NoiseSD > 0 {
				v[i] += rng.NormFloat64() * p.NoiseSD
			}
		}

		if err := m.Add(sweep, tm, v, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ExpectedRheobase returns the smallest step (pA) in the protocol whose steady
// state crosses the model's spike threshold, and its sweep number
func (p SynthParams) ExpectedRheobase() (sweep int, pA float64, ok bool) {
	need := (p.SpikeThreshold - p.RestingPotential) * 1000 / p.InputResistance
	for sweep := 0; sweep < p.Sweeps; sweep++ {
		if p.StepCurrent(sweep) > need {
			return sweep, p.StepCurrent(sweep), true
		}
	}
	return 0, 0, false
}
