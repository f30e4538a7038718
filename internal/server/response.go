package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidalx/internal/shared"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// writeRaw sends a JSON body that is already encoded.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps an error onto the status code sent to the client.
func statusFor(err error) int {
	switch {
	case shared.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a flat {"error": ...} body.
//
// Server-side failures get the generic message; upstream status and body only reach the log.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error, message string) {
	status := statusFor(err)

	fields := []any{"path", r.URL.Path, "status", status, "request_id", RequestIDFrom(r.Context()), "error", err}
	var upstream *shared.UpstreamError
	if errors.As(err, &upstream) {
		fields = append(fields, "upstream_status", upstream.StatusCode, "upstream_body", upstream.Body)
	}

	switch status {
	case http.StatusUnauthorized:
		logger.Warn(message, fields...)
		message = "Not authenticated with Tidal"
	case http.StatusBadRequest:
		logger.Warn(message, fields...)
		message = err.Error()
	default:
		logger.Error(message, fields...)
	}

	writeJSON(w, status, errorBody{Error: message})
}
