package ratelimit

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Global returns a whole-server token-bucket middleware, a coarse
// second layer under the per-client window limiter. perSecond <= 0
// disables it.
func Global(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
