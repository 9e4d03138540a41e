// Package recording provides SweepReader implementations that hand voltage and
// current traces to the analysis core.
package recording

import (
	"fmt"
	"sort"

	"github.com/chrissnell/apanalyzer/internal/types"
)

// SweepReader gives access to the sweeps of one recording. ReadSweep returns a
// fresh copy of the requested channel and fails with types.ErrSweepNotFound for
// an unknown sweep.
type SweepReader interface {
	Sweeps() []int
	ReadSweep(sweep int, channel types.Channel) (types.Trace, error)
}

// Opener opens a recording by identifier (a file path for on-disk formats)
type Opener func(id string) (SweepReader, error)

// OpenError marks a recording that could not be opened at all
type OpenError struct {
	ID  string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("unable to open recording %s: %v", e.ID, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

type sweepData struct {
	time    []float64
	voltage []float64
	current []float64
}

// Memory is an in-memory recording
type Memory struct {
	sweeps map[int]sweepData
}

// NewMemory creates an empty in-memory recording
func NewMemory() *Memory {
	return &Memory{sweeps: make(map[int]sweepData)}
}

// Add stores a sweep. Voltage and current must share the time base.
func (m *Memory) Add(sweep int, time, voltage, current []float64) error {
	if _, err := types.NewTrace(time, voltage); err != nil {
		return fmt.Errorf("sweep %d voltage: %w", sweep, err)
	}
	if _, err := types.NewTrace(time, current); err != nil {
		return fmt.Errorf("sweep %d current: %w", sweep, err)
	}
	m.sweeps[sweep] = sweepData{time: time, voltage: voltage, current: current}
	return nil
}

// Sweeps returns the sweep numbers in ascending order
func (m *Memory) Sweeps() []int {
	sweeps := make([]int, 0, len(m.sweeps))
	for s := range m.sweeps {
		sweeps = append(sweeps, s)
	}
	sort.Ints(sweeps)
	return sweeps
}

// ReadSweep returns a copy of one channel of a sweep
func (m *Memory) ReadSweep(sweep int, channel types.Channel) (types.Trace, error) {
	sd, ok := m.sweeps[sweep]
	if !ok {
		return types.Trace{}, fmt.Errorf("%w: %d", types.ErrSweepNotFound, sweep)
	}

	var src []float64
	switch channel {
	case types.VoltageChannel:
		src = sd.voltage
	case types.CurrentChannel:
		src = sd.current
	default:
		return types.Trace{}, fmt.Errorf("%w: sweep %d has no %v", types.ErrSweepNotFound, sweep, channel)
	}

	return types.Trace{
		Time:  append([]float64(nil), sd.time...),
		Value: append([]float64(nil), src...),
	}, nil
}
