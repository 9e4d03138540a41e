// sweep-simulator writes synthetic current-clamp recordings as CSV, plus an
// apanalyzer configuration listing them, for demos and end-to-end testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/apanalyzer/internal/log"
	"github.com/chrissnell/apanalyzer/internal/recording"
	"gopkg.in/yaml.v2"
)

type simConfig struct {
	Recordings []simRecording `yaml:"recordings"`
	Storage    struct {
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"storage"`
}

type simRecording struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

func main() {
	defaults := recording.DefaultSynthParams()

	outDir := flag.String("out", "recordings", "Directory to write recordings and config.yaml into")
	cells := flag.Int("cells", 3, "Number of recordings to generate")
	sweeps := flag.Int("sweeps", defaults.Sweeps, "Sweeps per recording")
	sampleRate := flag.Float64("rate", defaults.SampleRate, "Sample rate (Hz)")
	duration := flag.Float64("duration", defaults.Duration, "Sweep length (s)")
	increment := flag.Float64("increment", defaults.CurrentIncrement, "Current step increment between sweeps (pA)")
	resistance := flag.Float64("resistance", defaults.InputResistance, "Input resistance of the first cell (MΩ)")
	spread := flag.Float64("spread", 50, "Input resistance added per additional cell (MΩ)")
	noise := flag.Float64("noise", 0, "Voltage noise standard deviation (mV)")
	seed := flag.Int64("seed", defaults.Seed, "Random seed")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("could not create output directory: %v", err)
	}

	var cfg simConfig
	cfg.Storage.SQLite.Path = filepath.Join(*outDir, "results.db")

	for i := 0; i < *cells; i++ {
		p := defaults
		p.Sweeps = *sweeps
		p.SampleRate = *sampleRate
		p.Duration = *duration
		p.CurrentIncrement = *increment
		p.InputResistance = *resistance + float64(i)*(*spread)
		p.NoiseSD = *noise
		p.Seed = *seed + int64(i)

		id := fmt.Sprintf("cell%02d", i+1)
		path := filepath.Join(*outDir, id+".csv")
		if err := writeRecording(path, p); err != nil {
			log.Fatalf("could not write %s: %v", path, err)
		}

		if sweep, pA, ok := p.ExpectedRheobase(); ok {
			log.Infow("wrote recording", "recording", id, "path", path, "rheobase_sweep", sweep, "rheobase_pa", pA)
		} else {
			log.Infow("wrote recording", "recording", id, "path", path, "rheobase_sweep", "none")
		}
		cfg.Recordings = append(cfg.Recordings, simRecording{ID: id, Path: path})
	}

	cfgPath := filepath.Join(*outDir, "config.yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Fatalf("could not encode config: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		log.Fatalf("could not write %s: %v", cfgPath, err)
	}
	log.Infof("wrote %s; try: apanalyzer -config %s rheobase", cfgPath, cfgPath)
}

func writeRecording(path string, p recording.SynthParams) error {
	rec, err := recording.Synthesize(p)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := recording.WriteCSV(f, rec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
