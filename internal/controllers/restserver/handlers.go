package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/chrissnell/apanalyzer/internal/analysis"
	"github.com/chrissnell/apanalyzer/internal/recording"
	"github.com/chrissnell/apanalyzer/internal/types"
	"github.com/chrissnell/apanalyzer/pkg/responseformat"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var errUnknownRecording = errors.New("unknown recording")

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	recordings []string
	known      map[string]bool
	open       recording.Opener
	cfg        types.AnalysisConfig
	formatter  *responseformat.Formatter
	logger     *zap.SugaredLogger

	mu        sync.Mutex
	analyzers map[string]*analysis.Analyzer
}

// NewHandlers creates handlers serving the given recording IDs. Recordings are
// opened on first use and kept for the life of the server.
func NewHandlers(ids []string, open recording.Opener, cfg types.AnalysisConfig, logger *zap.SugaredLogger) *Handlers {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &Handlers{
		recordings: ids,
		known:      known,
		open:       open,
		cfg:        cfg,
		formatter:  responseformat.NewFormatter(),
		logger:     logger,
		analyzers:  make(map[string]*analysis.Analyzer),
	}
}

// SweepSummary is one row of the sweep listing
type SweepSummary = analysis.FIPoint

// StimulusResponse describes the current step of a sweep
type StimulusResponse struct {
	Window      types.StepWindow `json:"window"`
	AmplitudePA float64          `json:"amplitude_pa"`
}

// RheobaseResponse describes the first firing sweep of a recording
type RheobaseResponse struct {
	Found       bool    `json:"found"`
	Sweep       int     `json:"sweep"`
	CurrentPA   float64 `json:"current_pa"`
	ThresholdMV float64 `json:"threshold_mv"`
	HalfWidthMS float64 `json:"half_width_ms,omitempty"`
}

func (h *Handlers) analyzer(id string) (*analysis.Analyzer, error) {
	if !h.known[id] {
		return nil, fmt.Errorf("%w: %s", errUnknownRecording, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if a, ok := h.analyzers[id]; ok {
		return a, nil
	}

	reader, err := h.open(id)
	if err != nil {
		return nil, err
	}
	a, err := analysis.New(reader, h.cfg)
	if err != nil {
		return nil, err
	}
	h.analyzers[id] = a
	h.logger.Debugw("opened recording", "recording", id, "sweeps", len(a.Sweeps()))
	return a, nil
}

// sweepRequest resolves the {id} and {sweep} path variables
func (h *Handlers) sweepRequest(req *http.Request) (*analysis.Analyzer, int, error) {
	vars := mux.Vars(req)
	a, err := h.analyzer(vars["id"])
	if err != nil {
		return nil, 0, err
	}
	sweep, err := strconv.Atoi(vars["sweep"])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad sweep %q", types.ErrSweepNotFound, vars["sweep"])
	}
	return a, sweep, nil
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, data any, err error) {
	if err != nil {
		status := httpStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Errorw("request failed", "path", req.URL.Path, "error", err)
		}
		h.formatter.WriteError(w, req, status, err)
		return
	}
	if err := h.formatter.WriteResponse(w, req, http.StatusOK, data); err != nil {
		h.logger.Warnw("could not write response", "path", req.URL.Path, "error", err)
	}
}

// GetRecordings lists the configured recording IDs
func (h *Handlers) GetRecordings(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, h.recordings, nil)
}

// GetSweeps lists every sweep with its stimulus amplitude and spike count
func (h *Handlers) GetSweeps(w http.ResponseWriter, req *http.Request) {
	a, err := h.analyzer(mux.Vars(req)["id"])
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	points, err := a.FICurve()
	h.respond(w, req, points, err)
}

// GetSeries returns one of the voltage, current, rate or shape traces of a sweep
func (h *Handlers) GetSeries(w http.ResponseWriter, req *http.Request) {
	a, sweep, err := h.sweepRequest(req)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}

	var tr types.Trace
	switch kind := mux.Vars(req)["kind"]; kind {
	case "voltage":
		tr, err = a.Trace(sweep)
	case "current":
		tr, err = a.Current(sweep)
	case "rate":
		tr, err = a.Rate(sweep)
	case "shape":
		tr, err = a.Shape(sweep)
	default:
		err = fmt.Errorf("%w: unknown series %q (want voltage, current, rate or shape)", types.ErrInvalidConfig, kind)
	}
	h.respond(w, req, tr, err)
}

// GetSpikes returns the spike events of a sweep
func (h *Handlers) GetSpikes(w http.ResponseWriter, req *http.Request) {
	a, sweep, err := h.sweepRequest(req)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	spikes, err := a.FindSpikes(sweep)
	h.respond(w, req, spikes, err)
}

// GetStimulus returns the current step window and its quantized amplitude
func (h *Handlers) GetStimulus(w http.ResponseWriter, req *http.Request) {
	a, sweep, err := h.sweepRequest(req)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}

	window, err := a.FindCurrentStep(sweep)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	amplitude, err := a.MeasureCurrent(sweep)
	h.respond(w, req, StimulusResponse{Window: window, AmplitudePA: amplitude}, err)
}

func (h *Handlers) spikeRequest(req *http.Request) (*analysis.Analyzer, int, int, error) {
	a, sweep, err := h.sweepRequest(req)
	if err != nil {
		return nil, 0, 0, err
	}
	n, err := strconv.Atoi(mux.Vars(req)["n"])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: bad spike index %q", types.ErrIndexOutOfRange, mux.Vars(req)["n"])
	}
	return a, sweep, n, nil
}

// GetWaveform returns voltage, rate and shape around one spike
func (h *Handlers) GetWaveform(w http.ResponseWriter, req *http.Request) {
	a, sweep, n, err := h.spikeRequest(req)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	wf, err := a.SpikeWaveform(sweep, n)
	h.respond(w, req, wf, err)
}

// GetPhasePlot returns (V, dV/dt) pairs around one spike
func (h *Handlers) GetPhasePlot(w http.ResponseWriter, req *http.Request) {
	a, sweep, n, err := h.spikeRequest(req)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	points, err := a.PhasePlot(sweep, n)
	h.respond(w, req, points, err)
}

// GetRheobase returns the rheobase sweep with its AP threshold and half-width
func (h *Handlers) GetRheobase(w http.ResponseWriter, req *http.Request) {
	a, err := h.analyzer(mux.Vars(req)["id"])
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}

	rb, ok, err := a.FindRheobase()
	if err != nil || !ok {
		h.respond(w, req, RheobaseResponse{}, err)
		return
	}

	resp := RheobaseResponse{Found: true, Sweep: rb.Sweep, CurrentPA: rb.CurrentPA}
	if resp.ThresholdMV, err = a.APThreshold(rb.Sweep); err != nil {
		h.respond(w, req, nil, err)
		return
	}
	halfWidth, err := a.HalfWidth(rb.Sweep)
	if err != nil {
		h.respond(w, req, nil, err)
		return
	}
	resp.HalfWidthMS = halfWidth * 1000
	h.respond(w, req, resp, nil)
}

func isNotFound(err error) bool {
	return errors.Is(err, errUnknownRecording) ||
		errors.Is(err, types.ErrSweepNotFound) ||
		errors.Is(err, os.ErrNotExist)
}
