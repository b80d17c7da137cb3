package testsupport

import (
	"path/filepath"
	"testing"

	"groovy/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.DefinitionsDir = filepath.Join(base, "workflows")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithRateLimit overrides the scanner rate limit on the test config.
func WithRateLimit(windowSeconds, maxScans int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scanner.RateLimitWindowSeconds = windowSeconds
		cfg.Scanner.RateLimitMaxScans = maxScans
	}
}

// WithAPIToken sets the API bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
