package log

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWithFileWritesRotatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apanalyzer.log")

	if err := InitWithFile(false, FileConfig{Path: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("InitWithFile() error: %v", err)
	}
	Infow("detected spikes", "sweep", 3, "count", 7)
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"detected spikes"`) {
		t.Errorf("log file missing message: %s", line)
	}
	if !strings.Contains(line, `"sweep":3`) {
		t.Errorf("log file missing structured field: %s", line)
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apanalyzer.log")

	if err := InitWithFile(false, FileConfig{Path: path}); err != nil {
		t.Fatalf("InitWithFile() error: %v", err)
	}
	Debug("hidden")
	Info("shown")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("info entry missing")
	}
}

func TestGetSugaredLoggerFallback(t *testing.T) {
	log, baseLogger = nil, nil
	if GetSugaredLogger() == nil {
		t.Fatal("GetSugaredLogger() returned nil without Init")
	}
	if GetZapLogger() == nil {
		t.Fatal("GetZapLogger() returned nil without Init")
	}
}

func TestHTTPMiddlewareRecordsStatusAndSize(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()

	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("no spikes"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recordings/a/sweeps/0/spikes/0/phase", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusUnprocessableEntity) {
		t.Errorf("status field = %v, want 422", fields["status"])
	}
	if fields["size"] != int64(len("no spikes")) {
		t.Errorf("size field = %v, want %d", fields["size"], len("no spikes"))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("level = %v, want debug for a 4xx", entries[0].Level)
	}
}

func TestHTTPMiddlewareServerErrorsLogAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := HTTPMiddleware(zap.New(core).Sugar())(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/recordings", nil))

	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("got %d error entries, want 1", n)
	}
}
