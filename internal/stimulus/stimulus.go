// Package stimulus locates the injected current step in a sweep and measures its amplitude.
package stimulus

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/apanalyzer/internal/types"
	"gonum.org/v1/gonum/floats"
)

// Window offsets in seconds relative to the step edges
const (
	BaselineFrom = 0.04 // baseline window opens 40 ms before step onset
	BaselineTo   = 0.02 // and closes 20 ms before it
	EdgeMargin   = 0.05 // plateau window skips 50 ms at both step edges

	// Resolution is the current quantum (pA) amplitudes are rounded to
	Resolution = 10.0
)

// FindStep returns the region where the current is at or above the midpoint of
// its extremes. A flat trace has no step. The method assumes a single
// rectangular step; more than one region above the midline is reported as a
// *types.MultipleStepsError instead of being repaired.
func FindStep(current types.Trace) (types.StepWindow, error) {
	if current.Len() == 0 {
		return types.StepWindow{}, nil
	}

	hi := floats.Max(current.Value)
	lo := floats.Min(current.Value)
	if hi == lo {
		return types.StepWindow{}, nil
	}
	avg := (hi + lo) * 0.5

	var regions [][2]int
	inRegion := false
	for i, v := range current.Value {
		switch {
		case v >= avg && !inRegion:
			regions = append(regions, [2]int{i, i})
			inRegion = true
		case v >= avg:
			regions[len(regions)-1][1] = i
		default:
			inRegion = false
		}
	}

	if len(regions) > 1 {
		return types.StepWindow{}, &types.MultipleStepsError{Regions: regions}
	}

	first, last := regions[0][0], regions[0][1]
	return types.StepWindow{
		Start: current.Time[first],
		End:   current.Time[last],
		First: first,
		Last:  last,
		Found: true,
	}, nil
}

// MeasureAmplitude returns the baseline-subtracted stimulus amplitude rounded to
// the nearest Resolution. An empty window measures 0.
func MeasureAmplitude(current types.Trace, window types.StepWindow) (float64, error) {
	if window.Empty() {
		return 0, nil
	}

	baseline := valuesBetween(current, window.Start-BaselineFrom, window.Start-BaselineTo)
	if len(baseline) == 0 {
		return 0, fmt.Errorf("%w: no baseline samples between %gs and %gs",
			types.ErrIndexOutOfRange, window.Start-BaselineFrom, window.Start-BaselineTo)
	}
	plateau := valuesBetween(current, window.Start+EdgeMargin, window.End-EdgeMargin)
	if len(plateau) == 0 {
		return 0, fmt.Errorf("%w: no plateau samples between %gs and %gs",
			types.ErrIndexOutOfRange, window.Start+EdgeMargin, window.End-EdgeMargin)
	}

	return Quantize(Median(plateau) - Median(baseline)), nil
}

// Quantize rounds a current to the nearest Resolution, halves to even
func Quantize(pA float64) float64 {
	return math.RoundToEven(pA/Resolution) * Resolution
}

// Median returns the middle value of data, averaging the two middle values for
// an even count. data is not modified. The median of nothing is NaN.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func valuesBetween(tr types.Trace, from, to float64) []float64 {
	var out []float64
	for i, t := range tr.Time {
		if t >= from && t <= to {
			out = append(out, tr.Value[i])
		}
	}
	return out
}
