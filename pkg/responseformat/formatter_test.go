package responseformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type point struct {
	Voltage float64 `json:"v"`
	Rate    float64 `json:"dvdt"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"text", FormatText, false},
		{"msgpack", FormatMsgPack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeMsgPackUsesJSONTags(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatMsgPack, point{Voltage: -65, Rate: 12.5}); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var got map[string]float64
	if err := msgpack.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding msgpack: %v", err)
	}
	if got["v"] != -65 || got["dvdt"] != 12.5 {
		t.Errorf("decoded %v, want v=-65 dvdt=12.5", got)
	}
}

func TestEncodeRejectsText(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, FormatText, 1); err == nil {
		t.Error("Encode(text) succeeded, want error")
	}
}

func TestWriteResponse(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
	}{
		{"default json", "/spikes", "application/json"},
		{"msgpack", "/spikes?format=msgpack", "application/x-msgpack"},
		{"unknown falls back to json", "/spikes?format=yaml", "application/json"},
	}

	f := NewFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if err := f.WriteResponse(rec, req, http.StatusOK, point{Voltage: 1, Rate: 2}); err != nil {
				t.Fatalf("WriteResponse() error: %v", err)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("CORS header = %q, want *", got)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/recordings/x", nil)

	if err := NewFormatter().WriteError(rec, req, http.StatusNotFound, errors.New("no such recording")); err != nil {
		t.Fatalf("WriteError() error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != "no such recording" {
		t.Errorf("error body = %q", body.Error)
	}
}
