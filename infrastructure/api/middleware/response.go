package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vexcore/vexel/internal/apperr"
)

// Envelope is the wire-level response wrapper: every response carries either
// data or an error, a status code, and elapsed wall time in seconds.
type Envelope struct {
	Data   any     `json:"data,omitempty"`
	Error  string  `json:"error,omitempty"`
	Status int     `json:"status"`
	Time   float64 `json:"time"`
}

// requestStartKey is unexported; start time is tracked via the request
// context set by the Timing middleware.
type requestStartKeyType struct{}

var requestStartKey = requestStartKeyType{}

// WriteJSON writes data wrapped in the success envelope.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, status, Envelope{Data: data, Status: status})
}

// WriteError writes err wrapped in the failure envelope, mapping the error's
// taxonomy (internal/apperr) to an HTTP status code. logger, if non-nil,
// records server-side (5xx) errors.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := statusFor(err)

	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}

	writeEnvelope(w, r, status, Envelope{Error: err.Error(), Status: status})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.Time = elapsed(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func elapsed(r *http.Request) float64 {
	start, ok := r.Context().Value(requestStartKey).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start).Seconds()
}

// statusFor maps the apperr taxonomy to HTTP status codes. Unrecognized
// errors default to 500.
func statusFor(err error) int {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code()
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.StatusCode()
	}

	switch {
	case errors.Is(err, apperr.ErrUnknownCollection),
		errors.Is(err, apperr.ErrUnknownColumn),
		errors.Is(err, apperr.ErrUnknownModel),
		errors.Is(err, apperr.ErrUnknownHandle),
		errors.Is(err, apperr.ErrColumnNotIndexed):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBadRequest),
		errors.Is(err, apperr.ErrDimMismatch):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
