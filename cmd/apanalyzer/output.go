package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/storage"
)

type rheobaseOutput struct {
	Run     *storage.Run          `json:"run"`
	Summary batch.RheobaseSummary `json:"summary"`
}

func printCounts(w io.Writer, r *storage.Run) error {
	fmt.Fprintf(w, "run %s (%s)\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	if len(r.Counts) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tSWEEPS\tSPIKES PER SWEEP")
	for _, row := range r.Counts {
		counts := make([]string, len(row.Counts))
		for i, c := range row.Counts {
			counts[i] = fmt.Sprint(c)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", row.Recording, len(row.Sweeps), strings.Join(counts, " "))
	}
	return tw.Flush()
}

func printRheobaseRows(w io.Writer, rows []batch.RheobaseRow) error {
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tSWEEP\tCURRENT (pA)\tTHRESHOLD (mV)")
	for _, row := range rows {
		if !row.Found {
			fmt.Fprintf(tw, "%s\t-\t-\t-\n", row.Recording)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%.2f\n", row.Recording, row.Sweep, row.CurrentPA, row.ThresholdMV)
	}
	return tw.Flush()
}

func printRheobase(w io.Writer, r *storage.Run, s batch.RheobaseSummary) error {
	fmt.Fprintf(w, "run %s (%s)\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	if err := printRheobaseRows(w, r.Rheobase); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d recordings fired; rheobase %.1f ± %.1f pA, threshold %.2f ± %.2f mV\n",
		s.Fired, s.Recordings, s.MeanCurrentPA, s.StdDevCurrentPA, s.MeanThresholdMV, s.StdDevThreshold)
	return nil
}
