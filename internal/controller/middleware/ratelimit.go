package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit bounds a route's request rate with a shared token bucket.
// Provider webhook retries can arrive in bursts; shedding the excess with a
// 429 lets the provider back off and redeliver.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
