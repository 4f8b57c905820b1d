package httpmw

import "net/http"

// CORSOptions configures cross-origin response headers.
type CORSOptions struct {
	// AllowedOrigin is the single origin permitted when AllowAny is
	// false (production). Comes from configuration, never a constant.
	AllowedOrigin string

	// AllowAny reflects any request origin (non-production mode).
	AllowAny bool
}

// CORS decides per request whether the originating site may read the
// response. A mismatched origin in production simply gets no
// allow-origin header; the request is still processed and the browser
// enforces the block. Credentialed requests are always permitted for
// allowed origins, so the header echoes a concrete origin rather than
// "*".
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			h := w.Header()
			h.Add("Vary", "Origin")

			allowed := ""
			switch {
			case origin == "":
				// same-origin or non-browser client, nothing to decide
			case opts.AllowAny:
				allowed = origin
			case origin == opts.AllowedOrigin:
				allowed = origin
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			// Preflight requests terminate here.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
