package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owenvale/shopfront/internal/apigroups"
	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/cfg"
	"github.com/owenvale/shopfront/internal/httperr"
	"github.com/owenvale/shopfront/internal/httpmw"
	"github.com/owenvale/shopfront/internal/httpserver"
	"github.com/owenvale/shopfront/internal/log"
	"github.com/owenvale/shopfront/internal/metrics"
	"github.com/owenvale/shopfront/internal/opshttp"
	"github.com/owenvale/shopfront/internal/otelx"
	"github.com/owenvale/shopfront/internal/probe"
	"github.com/owenvale/shopfront/internal/prof"
	"github.com/owenvale/shopfront/internal/ratelimit"
	"github.com/owenvale/shopfront/internal/sitehandler"
	"github.com/owenvale/shopfront/internal/webassets"
	v "github.com/owenvale/shopfront/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			v.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	logf := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}

	// Prefixed env vars first, then the legacy PORT / NODE_ENV aliases
	// for whatever is still unset; explicit flags win over both.
	cfg.FillFromEnv(flag.CommandLine, "SHOPFRONT_", logf)
	cfg.ApplyLegacyEnv(flag.CommandLine, logf)

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:        v.AppName,
		Level:      lvl,
		JSONFormat: conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"env", conf.Env,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"cors_origin", conf.CORSOrigin,
		"public_dir", conf.PublicDir,
		"max_body_bytes", conf.MaxBodyBytes,
		"rate_limit_max", conf.RateLimitMax,
		"rate_limit_window_min", conf.RateLimitWindow,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
	)

	// Setup pyroscope profiling
	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"source":    "go-agent",
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Setup otel for tracing
	// Insecure is true because we only write to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// Setup metrics
	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", &vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	// Static asset root: a directory on disk when configured, the
	// embedded pages otherwise.
	assets := webassets.DistFS()
	if conf.PublicDir != "" {
		assets = os.DirFS(conf.PublicDir)
		L.Info(ctx, "serving assets from directory", "public_dir", conf.PublicDir)
	}

	siteHandler, err := sitehandler.New(sitehandler.Options{
		Logger: L,
		Assets: assets,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	// Error normalizer: masks untyped failures in production, counts
	// every normalized error by kind.
	norm := httperr.NewNormalizer(L, conf.IsProduction(), m.IncHandlerError)

	// Route groups behind the error-aware adapter
	api := apihttp.New(norm)
	auth := apigroups.NewAuth(api)
	products := apigroups.NewProducts(api)
	groups := apihttp.Groups{
		Auth:      auth,
		Products:  products,
		Orders:    apigroups.NewOrders(api, products),
		Customers: apigroups.NewCustomers(api, auth),
		Settings:  apigroups.NewSettings(api),
	}

	// Per-client fixed-window limiter for API paths
	limiter := ratelimit.New(ctx,
		ratelimit.WithLimit(conf.RateLimitMax, time.Duration(conf.RateLimitWindow)*time.Minute),
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first denial per window per ip
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
	)

	// setup toggle for server shutdown
	var gate probe.ShutdownGate
	readiness := probe.Multi(gate.Probe())

	// start storefront http server
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger: L,
		Port:   conf.HTTPPort,
		CORS: httpmw.CORSOptions{
			AllowedOrigin: conf.CORSOrigin,
			AllowAny:      !conf.IsProduction(),
		},
		MaxBodyBytes: conf.MaxBodyBytes,
		Normalizer:   norm,
		API:          api,
		Groups:       groups,
		SiteHandler:  siteHandler,
		RateLimitMW:  limiter.Middleware,
		GlobalRateMW: ratelimit.Global(conf.GlobalRatePerSec, conf.GlobalRateBurst),
		MetricsMW:    m.Middleware,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		Tracing:      conf.EnableTracing,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener for metrics, health checks, and pprof
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      probe.Static(true, ""),
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		// log and dont exit, worst case systemd will kill the process after timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness checks so the load balancer stops sending traffic
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed")

	// short drain window; a second signal skips it
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(10 * time.Second):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}

	stopProf()

	L.Info(context.Background(), "shutdown complete")
	os.Exit(0)
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
