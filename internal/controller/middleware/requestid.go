package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"daybell/internal/logger"
)

// RequestID tags every request with a correlation id: the caller's
// X-Request-ID when present, a fresh uuid otherwise. The id rides the
// context for log correlation and echoes back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", reqID)
		ctx := logger.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
