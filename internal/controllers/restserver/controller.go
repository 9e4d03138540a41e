// Package restserver serves per-sweep analysis results over HTTP for plotting clients.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/apanalyzer/internal/log"
	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/chrissnell/apanalyzer/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller for the configured recordings
func NewController(ctx context.Context, wg *sync.WaitGroup, cfgData *config.ConfigData, open recording.Opener, logger *zap.SugaredLogger) (*Controller, error) {
	analysisCfg, err := cfgData.Analysis.ToAnalysisConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading analysis configuration: %w", err)
	}

	rc := cfgData.REST
	if rc.ListenAddr == "" {
		logger.Infof("rest.listen-addr not provided; defaulting to %s (all interfaces)", config.DefaultListenAddr)
		rc.ListenAddr = config.DefaultListenAddr
	}
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultPort)
		rc.Port = config.DefaultPort
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		logger:     logger,
		handlers:   NewHandlers(cfgData.RecordingIDs(), open, analysisCfg, logger),
	}

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.handlers.Router()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server and stops it when the context is cancelled
func (c *Controller) StartController() error {
	c.logger.Infow("starting REST server controller", "addr", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Router configures the HTTP router with all endpoints
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(h.logger))

	api := router.Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/recordings", h.GetRecordings)
	api.HandleFunc("/recordings/{id}/sweeps", h.GetSweeps)
	api.HandleFunc("/recordings/{id}/rheobase", h.GetRheobase)

	sweep := api.PathPrefix("/recordings/{id}/sweeps/{sweep:-?[0-9]+}").Subrouter()
	sweep.HandleFunc("/series/{kind}", h.GetSeries)
	sweep.HandleFunc("/spikes", h.GetSpikes)
	sweep.HandleFunc("/stimulus", h.GetStimulus)
	sweep.HandleFunc("/spikes/{n:-?[0-9]+}/waveform", h.GetWaveform)
	sweep.HandleFunc("/spikes/{n:-?[0-9]+}/phase", h.GetPhasePlot)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Errorf("no route for %s", req.URL.Path))
	})

	return router
}

// httpStatus maps analysis errors onto response codes
func httpStatus(err error) int {
	switch {
	case isNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNoSpikeFound),
		errors.Is(err, types.ErrIndexOutOfRange),
		errors.Is(err, types.ErrMultipleSteps):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
