package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey keeps middleware context values from colliding with keys set
// by other packages.
type contextKey string

const (
	requestIDKey contextKey = "request_id"

	// RequestIDHeader carries the request ID to and from clients.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds inbound IDs so a client cannot bloat
	// every log line its request produces.
	maxRequestIDLength = 64
)

// RequestID tags each request with an ID for log correlation. An inbound
// X-Request-ID of sane length is kept, so IDs stay stable across the
// dashboard proxy; anything else is replaced with a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the ID set by RequestID, or "" outside it.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
