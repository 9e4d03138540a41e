// Package trace provides downsampling and numerical differentiation of sweep traces.
package trace

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/types"
)

// Sample keeps every sample whose position is divisible by stride. Times are
// carried over unchanged; nothing is interpolated.
func Sample(tr types.Trace, stride int) (types.Trace, error) {
	if stride <= 0 {
		return types.Trace{}, fmt.Errorf("%w: sampling stride must be positive, got %d", types.ErrInvalidConfig, stride)
	}
	if stride == 1 {
		return tr, nil
	}

	n := (tr.Len() + stride - 1) / stride
	out := types.Trace{
		Time:  make([]float64, 0, n),
		Value: make([]float64, 0, n),
	}
	for i := 0; i < tr.Len(); i += stride {
		out.Time = append(out.Time, tr.Time[i])
		out.Value = append(out.Value, tr.Value[i])
	}
	return out, nil
}

// Window returns the part of tr with from <= time <= to
func Window(tr types.Trace, from, to float64) types.Trace {
	out := types.Trace{Time: []float64{}, Value: []float64{}}
	for i, t := range tr.Time {
		if t < from {
			continue
		}
		if t > to {
			break
		}
		out.Time = append(out.Time, t)
		out.Value = append(out.Value, tr.Value[i])
	}
	return out
}
