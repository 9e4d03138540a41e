package log

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPLogEntry represents an HTTP request/response log entry
type HTTPLogEntry struct {
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	Size       int           `json:"size"`
	RemoteAddr string        `json:"remote_addr"`
	UserAgent  string        `json:"user_agent"`
}

// LogHTTPRequest writes one access-log line. 5xx responses log at error level.
func LogHTTPRequest(logger *zap.SugaredLogger, e HTTPLogEntry) {
	fields := []any{
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"duration_ms", e.Duration.Milliseconds(),
		"size", e.Size,
		"remote_addr", e.RemoteAddr,
		"user_agent", e.UserAgent,
	}
	if e.Status >= http.StatusInternalServerError {
		logger.Errorw("http request", fields...)
		return
	}
	logger.Debugw("http request", fields...)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// HTTPMiddleware logs every request that passes through next
func HTTPMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, req)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			LogHTTPRequest(logger, HTTPLogEntry{
				Timestamp:  start,
				Method:     req.Method,
				Path:       req.URL.Path,
				Status:     rec.status,
				Duration:   time.Since(start),
				Size:       rec.size,
				RemoteAddr: req.RemoteAddr,
				UserAgent:  req.UserAgent(),
			})
		})
	}
}
