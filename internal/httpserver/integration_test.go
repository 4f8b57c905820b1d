package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/owenvale/shopfront/internal/ratelimit"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func startServer(t *testing.T, opts *Options) int {
	t.Helper()
	if opts.Port == 0 {
		opts.Port = getFreePort(t)
	}
	ctx := context.Background()
	stop, err := Start(ctx, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { stop(ctx) })

	// wait for the listener to come up
	addr := fmt.Sprintf("127.0.0.1:%d", opts.Port)
	for i := 0; i < 50; i++ {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return opts.Port
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server never came up on %s", addr)
	return 0
}

func get(t *testing.T, port int, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestStart_ServesPipelineOverTCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOpts(t)
	limiter := ratelimit.New(ctx, ratelimit.WithLimit(5, time.Minute))
	opts.RateLimitMW = limiter.Middleware
	port := startServer(t, opts)

	// Root page with security headers
	resp, body := get(t, port, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Fatal("missing CSP over TCP")
	}
	if !strings.Contains(body, "index.html") {
		t.Fatalf("body = %q", body)
	}

	// API JSON 404
	resp, body = get(t, port, "/api/ghosts")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /api/ghosts status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "API endpoint not found") {
		t.Fatalf("404 body = %q", body)
	}

	// SPA fallback
	resp, _ = get(t, port, "/some/client/route")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fallback status = %d", resp.StatusCode)
	}

	// Rate limit: remaining budget is 5 minus the /api/ghosts hit above.
	var last *http.Response
	for i := 0; i < 6; i++ {
		last, _ = get(t, port, "/api/settings")
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("after exhausting window: status = %d, want 429", last.StatusCode)
	}
	if last.Header.Get("Retry-After") == "" {
		t.Fatal("Retry-After missing on 429")
	}
}

func TestStart_GracefulShutdown(t *testing.T) {
	opts := testOpts(t)
	opts.Port = getFreePort(t)

	ctx := context.Background()
	stop, err := Start(ctx, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, _ := get(t, opts.Port, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := stop(sctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Idempotent
	if err := stop(sctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	_, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/", opts.Port))
	if err == nil {
		t.Fatal("server still accepting connections after shutdown")
	}
}

func TestStart_PortConflict(t *testing.T) {
	opts := testOpts(t)
	opts.Port = getFreePort(t)

	ctx := context.Background()
	stop, err := Start(ctx, opts)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer stop(ctx)

	opts2 := testOpts(t)
	opts2.Port = opts.Port
	if _, err := Start(ctx, opts2); err == nil {
		t.Fatal("expected error for port conflict")
	}
}
