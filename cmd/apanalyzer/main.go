package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/apanalyzer/internal/app"
	"github.com/chrissnell/apanalyzer/internal/log"
	"github.com/chrissnell/apanalyzer/pkg/config"
	"github.com/chrissnell/apanalyzer/pkg/responseformat"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: apanalyzer [flags] <command> [args]

Commands:
  count [recording...]      count spikes on every sweep
  rheobase [recording...]   find the rheobase current and AP threshold
  show-run <run-id>         print a saved analysis run
  serve                     serve the REST API

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	format := flag.String("format", "text", "Output format: text, json or msgpack")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("apanalyzer %s\n", version)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	outFormat, err := responseformat.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Console logging first so config errors are reported
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if cfgData.Log.File != "" {
		if err := log.InitWithFile(*debug, log.FileConfig{
			Path:       cfgData.Log.File,
			MaxSizeMB:  cfgData.Log.MaxSizeMB,
			MaxBackups: cfgData.Log.MaxBackups,
			MaxAgeDays: cfgData.Log.MaxAgeDays,
		}); err != nil {
			log.Errorf("Failed to initialize log file: %v", err)
			os.Exit(1)
		}
	}

	application, err := app.New(cfgData, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Invalid analysis configuration: %v", err)
		os.Exit(1)
	}

	if err := run(context.Background(), application, outFormat, flag.Args()); err != nil {
		log.Errorf("%s failed: %v", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, format responseformat.Format, args []string) error {
	out := os.Stdout

	switch cmd, rest := args[0], args[1:]; cmd {
	case "count":
		r, err := a.Count(ctx, rest)
		if err != nil {
			return err
		}
		if format == responseformat.FormatText {
			return printCounts(out, r)
		}
		return responseformat.Encode(out, format, r)

	case "rheobase":
		r, summary, err := a.Rheobase(ctx, rest)
		if err != nil {
			return err
		}
		if format == responseformat.FormatText {
			return printRheobase(out, r, summary)
		}
		return responseformat.Encode(out, format, rheobaseOutput{Run: r, Summary: summary})

	case "show-run":
		if len(rest) != 1 {
			return fmt.Errorf("show-run takes exactly one run id")
		}
		r, err := a.LoadRun(ctx, rest[0])
		if err != nil {
			return err
		}
		if format == responseformat.FormatText {
			if err := printCounts(out, r); err != nil {
				return err
			}
			return printRheobaseRows(out, r.Rheobase)
		}
		return responseformat.Encode(out, format, r)

	case "serve":
		return a.Serve(ctx)
	}

	return fmt.Errorf("unknown command %q; run with -h for help", args[0])
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
