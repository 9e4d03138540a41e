package batch

import (
	"gonum.org/v1/gonum/stat"
)

// RheobaseSummary describes rheobase current and AP threshold across the
// recordings that fired. Spreads are zero with fewer than two recordings.
type RheobaseSummary struct {
	Recordings      int     `json:"recordings"`
	Fired           int     `json:"fired"`
	MeanCurrentPA   float64 `json:"mean_current_pa"`
	StdDevCurrentPA float64 `json:"stddev_current_pa"`
	MeanThresholdMV float64 `json:"mean_threshold_mv"`
	StdDevThreshold float64 `json:"stddev_threshold_mv"`
}

// SummarizeRheobase aggregates rheobase rows
func SummarizeRheobase(rows []RheobaseRow) RheobaseSummary {
	s := RheobaseSummary{Recordings: len(rows)}

	var currents, thresholds []float64
	for _, r := range rows {
		if !r.Found {
			continue
		}
		currents = append(currents, r.CurrentPA)
		thresholds = append(thresholds, r.ThresholdMV)
	}
	s.Fired = len(currents)

	switch {
	case s.Fired == 1:
		s.MeanCurrentPA = currents[0]
		s.MeanThresholdMV = thresholds[0]
	case s.Fired > 1:
		s.MeanCurrentPA, s.StdDevCurrentPA = stat.MeanStdDev(currents, nil)
		s.MeanThresholdMV, s.StdDevThreshold = stat.MeanStdDev(thresholds, nil)
	}
	return s
}
