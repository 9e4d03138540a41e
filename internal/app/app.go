// Package app wires configuration, recordings, the batch runner, result
// storage and the REST controller into the apanalyzer commands.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/apanalyzer/internal/batch"
	"github.com/chrissnell/apanalyzer/internal/controllers/restserver"
	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/storage"
	"github.com/chrissnell/apanalyzer/internal/storage/sqlite"
	"github.com/chrissnell/apanalyzer/internal/storage/timescaledb"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/chrissnell/apanalyzer/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	cfg         *config.ConfigData
	analysisCfg types.AnalysisConfig
	paths       map[string]string
	logger      *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*App, error) {
	analysisCfg, err := cfg.Analysis.ToAnalysisConfig()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:         cfg,
		analysisCfg: analysisCfg,
		paths:       cfg.RecordingPaths(),
		logger:      logger,
	}, nil
}

// OpenRecording resolves a configured recording ID to its CSV file
func (a *App) OpenRecording(id string) (recording.SweepReader, error) {
	path, ok := a.paths[id]
	if !ok {
		return nil, &recording.OpenError{ID: id, Err: os.ErrNotExist}
	}
	return recording.OpenCSV(path)
}

// RecordingIDs returns the recordings to analyse: ids when given, otherwise all configured ones
func (a *App) RecordingIDs(ids []string) []string {
	if len(ids) > 0 {
		return ids
	}
	return a.cfg.RecordingIDs()
}

func (a *App) runner() (*batch.Runner, error) {
	return batch.NewRunner(a.OpenRecording, a.analysisCfg, a.cfg.Batch.Workers, a.logger)
}

// openStore returns the configured result store, or nil when none is configured
func (a *App) openStore(ctx context.Context) (storage.ResultStore, error) {
	switch {
	case a.cfg.Storage.SQLite != nil:
		store, err := sqlite.New(a.cfg.Storage.SQLite.Path, a.logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case a.cfg.Storage.TimescaleDB != nil:
		store, err := timescaledb.New(ctx, a.cfg.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, nil
}

// Count runs spike counting over the recordings and persists the run
func (a *App) Count(ctx context.Context, ids []string) (*storage.Run, error) {
	r, err := a.runner()
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(a.analysisCfg)
	if run.Counts, err = r.SpikeCounts(ctx, a.RecordingIDs(ids)); err != nil {
		return nil, err
	}
	return run, a.save(ctx, run)
}

// Rheobase finds the rheobase of every recording, persists the run and summarises it
func (a *App) Rheobase(ctx context.Context, ids []string) (*storage.Run, batch.RheobaseSummary, error) {
	r, err := a.runner()
	if err != nil {
		return nil, batch.RheobaseSummary{}, err
	}

	run := storage.NewRun(a.analysisCfg)
	if run.Rheobase, err = r.RheobaseStats(ctx, a.RecordingIDs(ids)); err != nil {
		return nil, batch.RheobaseSummary{}, err
	}
	return run, batch.SummarizeRheobase(run.Rheobase), a.save(ctx, run)
}

func (a *App) save(ctx context.Context, run *storage.Run) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("could not open result store: %w", err)
	}
	if store == nil {
		a.logger.Debug("no result store configured; run not saved")
		return nil
	}
	defer store.Close()

	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("could not save run %s: %w", run.ID, err)
	}
	return nil
}

// LoadRun fetches a previously saved run from the configured store
func (a *App) LoadRun(ctx context.Context, id string) (*storage.Run, error) {
	runID, err := parseRunID(id)
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open result store: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no result store configured", types.ErrInvalidConfig)
	}
	defer store.Close()

	return store.LoadRun(ctx, runID)
}

// Serve runs the REST server and blocks until shutdown
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl, err := restserver.NewController(ctx, &wg, a.cfg, a.OpenRecording, a.logger)
	if err != nil {
		return err
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	cancel()

	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
