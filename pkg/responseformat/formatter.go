package responseformat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Format names an output encoding
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatMsgPack Format = "msgpack"
)

// ParseFormat validates a user-supplied format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatJSON, nil
	case FormatText, FormatJSON, FormatMsgPack:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or msgpack)", s)
}

// Encode writes data to w as JSON or MessagePack. Text output is left to the caller.
func Encode(w io.Writer, format Format, data any) error {
	switch format {
	case FormatMsgPack:
		encoder := msgpack.NewEncoder(w)
		encoder.SetCustomStructTag("json") // Use json tags for MessagePack
		return encoder.Encode(data)
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
	return fmt.Errorf("format %q cannot be encoded", format)
}

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// ErrorBody is the payload of every non-2xx response
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if req.URL.Query().Get("format") == string(FormatMsgPack) {
		w.Header().Set("Content-Type", "application/x-msgpack")
		w.WriteHeader(status)
		return Encode(w, FormatMsgPack, data)
	}

	// Default to JSON format (when no format parameter or any other value)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes an ErrorBody with the given status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, err error) error {
	return f.WriteResponse(w, req, status, ErrorBody{Error: err.Error()})
}
