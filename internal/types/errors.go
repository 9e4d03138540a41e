package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for a non-positive sampling stride or unusable thresholds
	ErrInvalidConfig = errors.New("invalid analysis configuration")

	// ErrSweepNotFound is reported by a SweepReader for an unknown sweep index
	ErrSweepNotFound = errors.New("sweep not found")

	// ErrNoSpikeFound is returned by measurements that require a spike in the sweep
	ErrNoSpikeFound = errors.New("no action potential found")

	// ErrIndexOutOfRange is returned when a measurement point does not exist in the trace
	ErrIndexOutOfRange = errors.New("measurement point outside trace")

	// ErrInvalidTrace is returned for traces with mismatched lengths or non-increasing time
	ErrInvalidTrace = errors.New("invalid trace")

	// ErrMultipleSteps is returned when a current trace has more than one region above its midline
	ErrMultipleSteps = errors.New("current trace is not a single rectangular step")
)

// MultipleStepsError reports the disjoint regions that rose above the midline of
// a current trace. Regions hold [first, last] sample positions.
type MultipleStepsError struct {
	Regions [][2]int
}

func (e *MultipleStepsError) Error() string {
	return fmt.Sprintf("%v: %d regions above midline", ErrMultipleSteps, len(e.Regions))
}

func (e *MultipleStepsError) Unwrap() error {
	return ErrMultipleSteps
}
