package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fleetops-platform/api/internal/httpx"
)

const maxRequestIDLength = 64

// RequestID attaches a request id to the context and echoes it in the
// response. A caller-supplied X-Request-Id is honored so clients can
// correlate retries, but anything oversized or non-printable is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		ctx := httpx.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}
