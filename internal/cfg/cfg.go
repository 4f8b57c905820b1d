package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/owenvale/shopfront/internal/log"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type App struct {
	LogJSON  bool
	LogLevel string

	HTTPPort  int
	AdminPort int
	Env       string

	// CORSOrigin is the single origin allowed in production mode.
	CORSOrigin string

	// PublicDir is the static asset root. Empty means the embedded
	// default storefront pages are served instead.
	PublicDir string

	MaxBodyBytes int64

	RateLimitMax    int
	RateLimitWindow int // minutes

	// Global burst protection (whole server). 0 disables it.
	GlobalRatePerSec float64
	GlobalRateBurst  int

	EnablePprof     bool
	EnableTracing   bool
	EnablePyroscope bool
	OTLPEndpoint    string
	TraceSample     float64
	PyroServer      string
	PyroTenantID    string
}

func (c App) IsProduction() bool { return c.Env == EnvProduction }

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 3000, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9100, "admin listen TCP port (1..65535)")
	fs.StringVar(&c.Env, "env", EnvDevelopment, "development|production")
	fs.StringVar(&c.CORSOrigin, "cors-origin", "", "allowed origin in production mode (URL)")
	fs.StringVar(&c.PublicDir, "public-dir", "", "static asset root directory (empty = embedded pages)")
	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", 10<<20, "request body size ceiling in bytes")
	fs.IntVar(&c.RateLimitMax, "rate-limit-max", 100, "API requests allowed per client per window")
	fs.IntVar(&c.RateLimitWindow, "rate-limit-window", 15, "rate limit window in minutes")
	fs.Float64Var(&c.GlobalRatePerSec, "global-rate", 0, "whole-server requests/sec ceiling (0 = disabled)")
	fs.IntVar(&c.GlobalRateBurst, "global-rate-burst", 200, "whole-server burst capacity")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		// a failed Set leaves the flag value and its Visit mark untouched
		if err := fs.Set(f.Name, envVal); err != nil {
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// ApplyLegacyEnv honors the two unprefixed variables the deployment
// tooling has always set: PORT and NODE_ENV. Explicit flags and
// prefixed variables both take precedence; call this after
// FillFromEnv, which leaves a set Visit mark on every flag it fills,
// so a flag already bound from the CLI or a prefixed variable is
// skipped here.
func ApplyLegacyEnv(fs *flag.FlagSet, logf func(string, ...any)) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	aliases := map[string]string{
		"PORT":     "http-port",
		"NODE_ENV": "env",
	}
	for env, name := range aliases {
		val, hasVal := os.LookupEnv(env)
		if !hasVal || set[name] {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := fs.Set(name, val); err != nil {
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", name, env, val, err)
			}
		}
	}
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("invalid ENV %q (must be %s|%s)", c.Env, EnvDevelopment, EnvProduction))
	}

	if c.Env == EnvProduction {
		if c.CORSOrigin == "" {
			errs = append(errs, fmt.Errorf("CORS_ORIGIN required when ENV=production"))
		} else if u, err := url.Parse(c.CORSOrigin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("CORS_ORIGIN must be a URL (got %q)", c.CORSOrigin))
		}
	}

	if c.PublicDir != "" {
		if fi, err := os.Stat(c.PublicDir); err != nil || !fi.IsDir() {
			errs = append(errs, fmt.Errorf("PUBLIC_DIR %q is not a readable directory", c.PublicDir))
		}
	}

	if c.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive (got %d)", c.MaxBodyBytes))
	}
	if c.RateLimitMax < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must be positive (got %d)", c.RateLimitMax))
	}
	if c.RateLimitWindow < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive minutes (got %d)", c.RateLimitWindow))
	}
	if c.GlobalRatePerSec < 0 {
		errs = append(errs, fmt.Errorf("GLOBAL_RATE must be >= 0 (got %f)", c.GlobalRatePerSec))
	}
	if c.GlobalRatePerSec > 0 && c.GlobalRateBurst < 1 {
		errs = append(errs, fmt.Errorf("GLOBAL_RATE_BURST must be positive when GLOBAL_RATE is set"))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
