package timescaledb

import (
	"time"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/google/uuid"
)

// We declare the Tabler interface for purposes of customizing the table name in the DB
type Tabler interface {
	TableName() string
}

type runModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	CreatedAt          time.Time `gorm:"column:created_at;not null"`
	SamplingStride     int       `gorm:"column:sampling_stride"`
	AmplitudeThreshold float64   `gorm:"column:amplitude_threshold"`
	RateThreshold      float64   `gorm:"column:rate_threshold"`
	PeakPolicy         string    `gorm:"column:peak_policy"`
}

func (runModel) TableName() string { return "analysis_runs" }

type spikeCountModel struct {
	RunID     string    `gorm:"column:run_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;primaryKey"`
	Recording string    `gorm:"column:recording;primaryKey"`
	Sweep     int       `gorm:"column:sweep;primaryKey"`
	Count     int       `gorm:"column:count"`
	Position  int       `gorm:"column:position"`
}

func (spikeCountModel) TableName() string { return "spike_counts" }

type rheobaseModel struct {
	RunID       string  `gorm:"column:run_id;primaryKey"`
	Recording   string  `gorm:"column:recording;primaryKey"`
	Found       bool    `gorm:"column:found"`
	Sweep       int     `gorm:"column:sweep"`
	CurrentPA   float64 `gorm:"column:current_pa"`
	ThresholdMV float64 `gorm:"column:threshold_mv"`
	Position    int     `gorm:"column:position"`
}

func (rheobaseModel) TableName() string { return "rheobase" }

func toModels(run *storage.Run) (runModel, []spikeCountModel, []rheobaseModel) {
	id := run.ID.String()
	rm := runModel{
		ID:                 id,
		CreatedAt:          run.CreatedAt,
		SamplingStride:     run.Config.SamplingStride,
		AmplitudeThreshold: run.Config.AmplitudeThreshold,
		RateThreshold:      run.Config.RateThreshold,
		PeakPolicy:         string(run.Config.PeakPolicy),
	}

	var counts []spikeCountModel
	for pos, row := range run.Counts {
		for i, sweep := range row.Sweeps {
			counts = append(counts, spikeCountModel{
				RunID:     id,
				CreatedAt: run.CreatedAt,
				Recording: row.Recording,
				Sweep:     sweep,
				Count:     row.Counts[i],
				Position:  pos,
			})
		}
	}

	rheo := make([]rheobaseModel, len(run.Rheobase))
	for i, row := range run.Rheobase {
		rheo[i] = rheobaseModel{
			RunID:       id,
			Recording:   row.Recording,
			Found:       row.Found,
			Sweep:       row.Sweep,
			CurrentPA:   row.CurrentPA,
			ThresholdMV: row.ThresholdMV,
			Position:    i,
		}
	}
	return rm, counts, rheo
}

// fromModels expects counts ordered by (position, sweep) and rheo by position
func fromModels(rm runModel, counts []spikeCountModel, rheo []rheobaseModel) (*storage.Run, error) {
	id, err := uuid.Parse(rm.ID)
	if err != nil {
		return nil, err
	}
	run := &storage.Run{
		ID:        id,
		CreatedAt: rm.CreatedAt,
		Config: types.AnalysisConfig{
			SamplingStride:     rm.SamplingStride,
			AmplitudeThreshold: rm.AmplitudeThreshold,
			RateThreshold:      rm.RateThreshold,
			PeakPolicy:         types.PeakPolicy(rm.PeakPolicy),
		},
	}

	lastPos := -1
	for _, c := range counts {
		if c.Position != lastPos {
			run.Counts = append(run.Counts, batch.CountRow{Recording: c.Recording})
			lastPos = c.Position
		}
		row := &run.Counts[len(run.Counts)-1]
		row.Sweeps = append(row.Sweeps, c.Sweep)
		row.Counts = append(row.Counts, c.Count)
	}

	for _, r := range rheo {
		run.Rheobase = append(run.Rheobase, batch.RheobaseRow{
			Recording:   r.Recording,
			Found:       r.Found,
			Sweep:       r.Sweep,
			CurrentPA:   r.CurrentPA,
			ThresholdMV: r.ThresholdMV,
		})
	}
	return run, nil
}
