// Package spike finds action potentials in a voltage trace and measures their
// threshold and half-width.
package spike

import (
	"fmt"

	"github.com/chrissnell/apanalyzer/internal/types"
)

// Run is a maximal block of consecutive sample positions that passed both
// detection thresholds. First and Last are inclusive.
type Run struct {
	First int
	Last  int
}

// Len returns the number of samples in the run
func (r Run) Len() int {
	return r.Last - r.First + 1
}

// Mask flags each sample with rate >= rateThreshold and value >= amplitudeThreshold
func Mask(tr, rate types.Trace, amplitudeThreshold, rateThreshold float64) []bool {
	mask := make([]bool, tr.Len())
	for i := range mask {
		mask[i] = rate.Value[i] >= rateThreshold && tr.Value[i] >= amplitudeThreshold
	}
	return mask
}

// Segment groups flagged samples into runs. Adjacency is decided on sample
// position, never on time, so downsampled or irregular traces group the same way.
func Segment(tr, rate types.Trace, amplitudeThreshold, rateThreshold float64) ([]Run, error) {
	if tr.Len() != rate.Len() {
		return nil, fmt.Errorf("%w: trace has %d samples but rate has %d", types.ErrInvalidTrace, tr.Len(), rate.Len())
	}

	var runs []Run
	inRun := false
	for i, flagged := range Mask(tr, rate, amplitudeThreshold, rateThreshold) {
		switch {
		case flagged && !inRun:
			runs = append(runs, Run{First: i, Last: i})
			inRun = true
		case flagged:
			runs[len(runs)-1].Last = i
		default:
			inRun = false
		}
	}
	return runs, nil
}
