package cfg

import (
	"flag"
	"strings"
	"testing"
)

func newFlagSet(c *App) *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Register(fs, c)
	return fs
}

func TestRegister_Defaults(t *testing.T) {
	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if c.HTTPPort != 3000 {
		t.Fatalf("default http-port = %d, want 3000", c.HTTPPort)
	}
	if c.Env != EnvDevelopment {
		t.Fatalf("default env = %q", c.Env)
	}
	if c.MaxBodyBytes != 10<<20 {
		t.Fatalf("default max-body-bytes = %d", c.MaxBodyBytes)
	}
	if c.RateLimitMax != 100 || c.RateLimitWindow != 15 {
		t.Fatalf("default rate limit = %d/%dmin", c.RateLimitMax, c.RateLimitWindow)
	}
	if err := Validate(c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFillFromEnv_Precedence(t *testing.T) {
	t.Setenv("SF_HTTP_PORT", "8081")
	t.Setenv("SF_LOG_LEVEL", "debug")

	var c App
	fs := newFlagSet(&c)
	// cli wins over env
	if err := fs.Parse([]string{"-http-port", "4000"}); err != nil {
		t.Fatal(err)
	}
	FillFromEnv(fs, "SF_", nil)

	if c.HTTPPort != 4000 {
		t.Fatalf("cli flag should win, got %d", c.HTTPPort)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("env should fill unset flag, got %q", c.LogLevel)
	}
}

func TestFillFromEnv_InvalidValueIgnored(t *testing.T) {
	t.Setenv("SF_HTTP_PORT", "not-a-port")

	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	var logged bool
	FillFromEnv(fs, "SF_", func(string, ...any) { logged = true })

	if c.HTTPPort != 3000 {
		t.Fatalf("invalid env should keep default, got %d", c.HTTPPort)
	}
	if !logged {
		t.Fatal("invalid env should be reported")
	}
}

func TestApplyLegacyEnv(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("NODE_ENV", "production")

	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	ApplyLegacyEnv(fs, nil)

	if c.HTTPPort != 5000 {
		t.Fatalf("PORT alias not applied, got %d", c.HTTPPort)
	}
	if c.Env != EnvProduction {
		t.Fatalf("NODE_ENV alias not applied, got %q", c.Env)
	}
}

func TestApplyLegacyEnv_FlagWins(t *testing.T) {
	t.Setenv("PORT", "5000")

	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse([]string{"-http-port", "6000"}); err != nil {
		t.Fatal(err)
	}
	ApplyLegacyEnv(fs, nil)

	if c.HTTPPort != 6000 {
		t.Fatalf("explicit flag should beat PORT, got %d", c.HTTPPort)
	}
}

func TestApplyLegacyEnv_PrefixedEnvWins(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("SF_HTTP_PORT", "8081")

	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	FillFromEnv(fs, "SF_", nil)
	ApplyLegacyEnv(fs, nil)

	if c.HTTPPort != 8081 {
		t.Fatalf("prefixed env should win over legacy PORT, got %d", c.HTTPPort)
	}
}

func TestApplyLegacyEnv_AppliesWhenPrefixedEnvInvalid(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("SF_HTTP_PORT", "not-a-port")

	var c App
	fs := newFlagSet(&c)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	FillFromEnv(fs, "SF_", nil)
	ApplyLegacyEnv(fs, nil)

	if c.HTTPPort != 5000 {
		t.Fatalf("legacy PORT should fill in for a rejected prefixed value, got %d", c.HTTPPort)
	}
}

func TestValidate_ProductionRequiresCORSOrigin(t *testing.T) {
	var c App
	fs := newFlagSet(&c)
	fs.Parse(nil)
	c.Env = EnvProduction

	err := Validate(c)
	if err == nil || !strings.Contains(err.Error(), "CORS_ORIGIN") {
		t.Fatalf("expected CORS_ORIGIN error, got %v", err)
	}

	c.CORSOrigin = "https://shop.example.com"
	if err := Validate(c); err != nil {
		t.Fatalf("valid production config rejected: %v", err)
	}

	c.CORSOrigin = "not a url"
	if err := Validate(c); err == nil {
		t.Fatal("malformed CORS_ORIGIN should fail")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	var c App
	fs := newFlagSet(&c)
	fs.Parse(nil)
	c.HTTPPort = 0
	c.LogLevel = "loud"
	c.Env = "staging"
	c.RateLimitMax = 0

	err := Validate(c)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"HTTP_PORT", "LOG_LEVEL", "ENV", "RATE_LIMIT_MAX"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_PortClash(t *testing.T) {
	var c App
	fs := newFlagSet(&c)
	fs.Parse(nil)
	c.AdminPort = c.HTTPPort

	if err := Validate(c); err == nil {
		t.Fatal("matching ports should fail validation")
	}
}
