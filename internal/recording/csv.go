package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/apanalyzer/internal/types"
)

var csvColumns = []string{"sweep", "time", "voltage", "current"}

// OpenCSV reads a recording stored as CSV with a header naming the columns
// sweep, time (s), voltage (mV) and current (pA). Rows of a sweep must be in
// time order; sweeps may appear in any order.
func OpenCSV(path string) (SweepReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{ID: path, Err: err}
	}
	defer f.Close()

	m, err := ReadCSV(f)
	if err != nil {
		return nil, &OpenError{ID: path, Err: err}
	}
	return m, nil
}

// ReadCSV parses a CSV recording into memory
func ReadCSV(r io.Reader) (*Memory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty recording")
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idx := make([]int, len(csvColumns))
	for i, name := range csvColumns {
		c, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		idx[i] = c
	}

	raw := make(map[int]*sweepData)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		sweep, err := strconv.Atoi(row[idx[0]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad sweep number %q: %w", line, row[idx[0]], err)
		}
		var vals [3]float64
		for j := 0; j < 3; j++ {
			vals[j], err = strconv.ParseFloat(row[idx[j+1]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s value %q: %w", line, csvColumns[j+1], row[idx[j+1]], err)
			}
		}

		sd, ok := raw[sweep]
		if !ok {
			sd = &sweepData{}
			raw[sweep] = sd
		}
		sd.time = append(sd.time, vals[0])
		sd.voltage = append(sd.voltage, vals[1])
		sd.current = append(sd.current, vals[2])
	}

	m := NewMemory()
	for sweep, sd := range raw {
		if err := m.Add(sweep, sd.time, sd.voltage, sd.current); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WriteCSV writes every sweep of r in the format read by ReadCSV
func WriteCSV(w io.Writer, r SweepReader) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return err
	}

	for _, sweep := range r.Sweeps() {
		v, err := r.ReadSweep(sweep, types.VoltageChannel)
		if err != nil {
			return err
		}
		c, err := r.ReadSweep(sweep, types.CurrentChannel)
		if err != nil {
			return err
		}
		s := strconv.Itoa(sweep)
		for i := range v.Time {
			err := writer.Write([]string{
				s,
				strconv.FormatFloat(v.Time[i], 'g', -1, 64),
				strconv.FormatFloat(v.Value[i], 'g', -1, 64),
				strconv.FormatFloat(c.Value[i], 'g', -1, 64),
			})
			if err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
