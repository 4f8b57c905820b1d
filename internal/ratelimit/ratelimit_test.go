package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/owenvale/shopfront/internal/httpmw"
)

// newTestLimiter creates a limiter on a fake clock with a cancellable
// context for the cleanup goroutine.
func newTestLimiter(opts ...Option) (*ClientLimiter, *fakeClock, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := &fakeClock{t: time.Unix(1700000000, 0)}
	defaults := []Option{
		WithLimit(5, 15*time.Minute),
		withClock(fc.Now),
	}
	l := New(ctx, append(defaults, opts...)...)
	return l, fc, cancel
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAllow_CeilingThenReject(t *testing.T) {
	l, _, cancel := newTestLimiter()
	defer cancel()

	ip := "10.0.0.1"
	for i := 0; i < 5; i++ {
		if ok, _ := l.allow(ip); !ok {
			t.Fatalf("request %d should be allowed (within ceiling)", i+1)
		}
	}
	if ok, _ := l.allow(ip); ok {
		t.Fatal("request 6 should be denied (ceiling reached)")
	}
}

func TestAllow_WindowExpiryResetsCounter(t *testing.T) {
	l, fc, cancel := newTestLimiter()
	defer cancel()

	ip := "10.0.0.1"
	for i := 0; i < 6; i++ {
		l.allow(ip)
	}
	if ok, _ := l.allow(ip); ok {
		t.Fatal("should still be denied inside the window")
	}

	// mid-window advance does not reset
	fc.Advance(10 * time.Minute)
	if ok, _ := l.allow(ip); ok {
		t.Fatal("counter must not reset before the window elapses")
	}

	// past the window start + duration, the count resets to zero
	fc.Advance(6 * time.Minute)
	if ok, _ := l.allow(ip); !ok {
		t.Fatal("elapsed window should reset the counter")
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	l, _, cancel := newTestLimiter()
	defer cancel()

	for i := 0; i < 6; i++ {
		l.allow("10.0.0.1")
	}
	if ok, _ := l.allow("10.0.0.1"); ok {
		t.Fatal("exhausted client should be denied")
	}
	if ok, _ := l.allow("10.0.0.2"); !ok {
		t.Fatal("other clients must have untouched counters")
	}
}

func TestAllow_ConcurrentIncrementsAreAtomic(t *testing.T) {
	l, _, cancel := newTestLimiter(WithLimit(50, 15*time.Minute))
	defer cancel()

	const total = 200
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.allow("10.9.9.9"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("allowed %d of %d concurrent requests, want exactly the ceiling 50", got, total)
	}
}

func TestOnFirstDenied_OncePerWindow(t *testing.T) {
	var first, every atomic.Int32
	l, fc, cancel := newTestLimiter(
		WithOnFirstDenied(func(ip string) { first.Add(1) }),
		WithOnDenied(func(ip string) { every.Add(1) }),
	)
	defer cancel()

	ip := "10.0.0.1"
	for i := 0; i < 5; i++ {
		l.allow(ip)
	}
	for i := 0; i < 10; i++ {
		l.allow(ip)
	}
	if first.Load() != 1 {
		t.Fatalf("OnFirstDenied called %d times, want 1", first.Load())
	}
	if every.Load() != 10 {
		t.Fatalf("OnDenied called %d times, want 10", every.Load())
	}

	// new window, new first-denial log
	fc.Advance(16 * time.Minute)
	for i := 0; i < 6; i++ {
		l.allow(ip)
	}
	if first.Load() != 2 {
		t.Fatalf("OnFirstDenied after reset = %d, want 2", first.Load())
	}
}

func requestAs(ip, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	return req.WithContext(httpmw.WithClientIP(req.Context(), ip))
}

func TestMiddleware_RejectsWithFixedText(t *testing.T) {
	l, _, cancel := newTestLimiter(WithLimit(1, 15*time.Minute))
	defer cancel()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs("10.0.0.1", "/api/products"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs("10.0.0.1", "/api/products"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Body.String() != DeniedMessage {
		t.Fatalf("body = %q, want the fixed rejection text", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
}

func TestMiddleware_NonAPIPathsNeverCount(t *testing.T) {
	l, _, cancel := newTestLimiter(WithLimit(1, 15*time.Minute))
	defer cancel()

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// page traffic far beyond the ceiling
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestAs("10.0.0.1", "/cart"))
		if rec.Code != http.StatusOK {
			t.Fatalf("page request %d limited (status %d)", i+1, rec.Code)
		}
	}

	// API budget is still intact
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs("10.0.0.1", "/api/orders"))
	if rec.Code != http.StatusOK {
		t.Fatalf("API budget consumed by page traffic (status %d)", rec.Code)
	}
}

func TestGlobal_DisabledAndEnforced(t *testing.T) {
	if Global(0, 10) != nil {
		t.Fatal("Global(0) should be nil (disabled)")
	}

	mw := Global(1, 2)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third immediate request should exceed burst: %v", codes)
	}
}
