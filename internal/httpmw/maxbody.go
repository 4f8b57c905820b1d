package httpmw

import "net/http"

// MaxBody limits request body size. Reads past the limit fail with
// *http.MaxBytesError, which the body decoder turns into a payload
// error for the normalizer.
func MaxBody(bytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, bytes)
			next.ServeHTTP(w, r)
		})
	}
}
