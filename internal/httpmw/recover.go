package httpmw

import (
	"net/http"

	"github.com/owenvale/shopfront/internal/log"
	"github.com/owenvale/shopfront/internal/xerrors"
)

// Recover turns handler panics into logged 500 responses. Panic detail
// is never echoed to clients in any mode; the log record carries it.
// onPanic, if set, is called after logging (panic counter metric).
func Recover(l log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if l == nil {
		l = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http uses this sentinel to abort cleanly
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = xerrors.Newf("panic: %v", rec)
				} else {
					err = xerrors.Wrap(err, "panic")
				}

				l.Error(r.Context(), xerrors.EnsureTrace(err), "panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
				)
				if onPanic != nil {
					onPanic()
				}

				// headers may already be on the wire; best effort only
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
