package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timing stashes the request start time in the request context so response
// envelopes can report elapsed wall time. Must run before Logging and any
// handler that calls WriteJSON/WriteError.
func Timing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestStartKey, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
