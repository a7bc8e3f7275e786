// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, and request timeouts.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/tobiaswidmer/poisearch/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID ensures every request carries an identifier: an incoming
// X-Request-ID header is honored, otherwise a fresh one is generated. The id
// is stored in the request context for logging and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(b[:])
}
