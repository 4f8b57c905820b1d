package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/owenvale/shopfront/internal/httpmw"
)

// DeniedMessage is the fixed rejection body for rate-limited clients.
const DeniedMessage = "Too many requests from this IP, please try again later."

// APIPrefix scopes the middleware: only paths under it consume budget.
const APIPrefix = "/api/"

// window tracks a single client's count inside the current fixed window.
type window struct {
	count int
	start time.Time
	// logged tracks whether we have already emitted the first-denial log
	// resets when the entry is evicted and re-created
	logged bool
}

// ClientLimiter holds per-client fixed windows with background eviction.
// The check and increment happen under one lock, so two concurrent
// requests can never both observe count == limit-1 and both pass.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*window

	// limit requests per win per client
	limit int
	win   time.Duration

	now func() time.Time // test hook

	// OnFirstDenied is called once per window when a client first goes
	// over the limit; used for single-entry logging.
	OnFirstDenied func(ip string)

	// OnDenied is called on every denied request; used for counters.
	OnDenied func(ip string)
}

type Option func(*ClientLimiter)

// WithLimit sets the request ceiling and window duration.
func WithLimit(limit int, win time.Duration) Option {
	return func(l *ClientLimiter) {
		l.limit = limit
		l.win = win
	}
}

// WithOnFirstDenied sets a callback for the first denial per window.
// Intentionally separate from OnDenied: we log once but count every denial.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *ClientLimiter) {
		l.OnFirstDenied = fn
	}
}

// WithOnDenied sets a callback for every denied request.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *ClientLimiter) {
		l.OnDenied = fn
	}
}

func withClock(now func() time.Time) Option {
	return func(l *ClientLimiter) { l.now = now }
}

// New creates a ClientLimiter and starts the background cleanup
// goroutine, which stops when ctx is cancelled.
func New(ctx context.Context, opts ...Option) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*window),
		limit:   100,
		win:     15 * time.Minute,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow counts one request for ip and reports whether it is within the
// window's ceiling, plus how long until the window resets.
func (l *ClientLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	w, exists := l.clients[ip]
	if !exists || now.Sub(w.start) >= l.win {
		// new client or elapsed window: counter resets to zero
		w = &window{start: now}
		l.clients[ip] = w
	}
	w.count++
	allowed := w.count <= l.limit
	retryIn := l.win - now.Sub(w.start)

	if !allowed && !w.logged {
		w.logged = true
		// release before hooks, they may do slow work
		l.mu.Unlock()
		if l.OnFirstDenied != nil {
			l.OnFirstDenied(ip)
		}
		if l.OnDenied != nil {
			l.OnDenied(ip)
		}
		return false, retryIn
	}
	l.mu.Unlock()

	if !allowed && l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return allowed, retryIn
}

// cleanup periodically evicts clients whose window has fully elapsed.
// They would reset on next contact anyway; eviction trims memory.
func (l *ClientLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.win / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, w := range l.clients {
				if now.Sub(w.start) >= l.win {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware rejects over-limit API requests with 429 and the fixed
// rejection text. Paths outside the API namespace never touch the
// counters. Requires the client IP middleware upstream.
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) < len(APIPrefix) || r.URL.Path[:len(APIPrefix)] != APIPrefix {
			next.ServeHTTP(w, r)
			return
		}

		ip := httpmw.ClientIPFromContext(r.Context())
		ok, retryIn := l.allow(ip)
		if !ok {
			secs := int(retryIn.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.WriteHeader(http.StatusTooManyRequests)
			// fixed text, no detail about limits or remaining budget
			_, _ = w.Write([]byte(DeniedMessage))
			return
		}

		next.ServeHTTP(w, r)
	})
}
