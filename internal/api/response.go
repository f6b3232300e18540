package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/threadlens/threadlens/internal/log"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API.
const (
	codeInvalidRequest = "invalid_request"
	codeUpstreamError  = "upstream_error"
	codeInternalError  = "internal_error"
	codeUnavailable    = "unavailable"
)

// writeJSON encodes data into a buffer first so a failed encode can still
// produce a clean 500 instead of a half-written body.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("writing response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger log.Logger, status int, code, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
