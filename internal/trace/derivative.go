package trace

import (
	"github.com/chrissnell/apanalyzer/internal/types"
	"gonum.org/v1/gonum/floats"
)

// msPerSecond converts trace time (s) to the millisecond axis derivatives are taken on
const msPerSecond = 1000.0

// Derivative returns d(value)/d(time) with time expressed in milliseconds, on the
// same time base as tr. Interior points use the second-order central difference
// for a non-uniform grid; the two end points use one-sided first differences.
// A single-sample trace has a derivative of zero.
func Derivative(tr types.Trace) types.Trace {
	n := tr.Len()
	out := types.Trace{
		Time:  tr.Time,
		Value: make([]float64, n),
	}
	if n < 2 {
		return out
	}

	x := make([]float64, n)
	floats.ScaleTo(x, msPerSecond, tr.Time)
	f := tr.Value

	out.Value[0] = (f[1] - f[0]) / (x[1] - x[0])
	for i := 1; i < n-1; i++ {
		hs := x[i] - x[i-1]
		hd := x[i+1] - x[i]
		out.Value[i] = (hs*hs*f[i+1] + (hd*hd-hs*hs)*f[i] - hd*hd*f[i-1]) / (hs * hd * (hd + hs))
	}
	out.Value[n-1] = (f[n-1] - f[n-2]) / (x[n-1] - x[n-2])

	return out
}

// Shape returns the second time derivative of tr (units per ms²)
func Shape(tr types.Trace) types.Trace {
	return Derivative(Derivative(tr))
}
