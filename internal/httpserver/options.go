package httpserver

import (
	"net/http"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/httperr"
	"github.com/owenvale/shopfront/internal/httpmw"
	"github.com/owenvale/shopfront/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	// CORS per-origin policy; ClientIPOpts governs XFF trust for the
	// rate limiter and access logs.
	CORS         httpmw.CORSOptions
	ClientIPOpts httpmw.ClientIPOptions

	// MaxBodyBytes caps request bodies ahead of the decoder. Zero means
	// the 10 MB default.
	MaxBodyBytes int64

	// Normalizer owns the error response shape; required.
	Normalizer *httperr.Normalizer

	// API mounts the route groups and the JSON 404 for /api/*.
	API    *apihttp.API
	Groups apihttp.Groups

	// SiteHandler serves pages and static assets; terminal fallback for
	// all non-API paths.
	SiteHandler http.Handler

	// RateLimitMW and MetricsMW are built by main from their packages;
	// nil skips the stage (tests).
	RateLimitMW func(http.Handler) http.Handler
	MetricsMW   func(http.Handler) http.Handler

	// GlobalRateMW optionally throttles total throughput before the
	// per-client limiter.
	GlobalRateMW func(http.Handler) http.Handler

	UseRecoverMW bool
	OnPanic      func()

	// Tracing wraps the stack in otelhttp when true.
	Tracing bool
}
