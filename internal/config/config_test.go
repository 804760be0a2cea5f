package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Request.Timeout)
	assert.Zero(t, cfg.Request.RateLimit)
	assert.Equal(t, 1, cfg.Request.RateBurst)
	assert.Equal(t, 1, cfg.Run.Concurrency)
	assert.Equal(t, 10, cfg.Run.RowLimit)
	assert.True(t, cfg.Run.Procedures)
	assert.Equal(t, "^0.1.0", cfg.Run.VersionConstraint)
	assert.Empty(t, cfg.Record)
	assert.False(t, cfg.Log.Verbose)
}

func TestNew_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndc-test.yaml")
	content := `
endpoint: http://localhost:8100
request:
  timeout: 5s
  rate_limit: 20
  headers:
    authorization: Bearer secret
run:
  concurrency: 4
  procedures: false
record: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8100", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Request.Timeout)
	assert.Equal(t, 20.0, cfg.Request.RateLimit)
	assert.Equal(t, "Bearer secret", cfg.Request.Headers["authorization"])
	assert.Equal(t, 4, cfg.Run.Concurrency)
	assert.False(t, cfg.Run.Procedures)
	assert.Equal(t, 10, cfg.Run.RowLimit, "unset keys keep their defaults")
	assert.Equal(t, "runs.db", cfg.Record)
}

func TestNew_TOMLConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndc-test.toml")
	content := `
endpoint = "http://localhost:9000"

[run]
row_limit = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Endpoint)
	assert.Equal(t, 3, cfg.Run.RowLimit)
}

func TestNew_MissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestNew_Environment(t *testing.T) {
	t.Setenv("NDC_TEST_ENDPOINT", "http://from-env:8100")
	t.Setenv("NDC_TEST_RUN_CONCURRENCY", "8")
	t.Setenv("NDC_TEST_REQUEST_TIMEOUT", "2s")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:8100", cfg.Endpoint)
	assert.Equal(t, 8, cfg.Run.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Request.Timeout)
}

func TestNew_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("NDC_TEST_RUN_ROW_LIMIT", "7")

	v, err := New("")
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("row-limit", 10, "")
	require.NoError(t, v.BindPFlag(KeyRowLimit, flags.Lookup("row-limit")))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Run.RowLimit, "unchanged flag does not mask the environment")

	require.NoError(t, flags.Parse([]string{"--row-limit=2"}))
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Run.RowLimit)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Request: RequestConfig{Timeout: time.Second, RateBurst: 1},
			Run:     RunConfig{Concurrency: 1, RowLimit: 10, VersionConstraint: "^0.1.0"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero timeout", func(c *Config) { c.Request.Timeout = 0 }, "request.timeout must be > 0"},
		{"negative rate limit", func(c *Config) { c.Request.RateLimit = -1 }, "request.rate_limit must be >= 0"},
		{"negative burst", func(c *Config) { c.Request.RateBurst = -1 }, "request.rate_burst must be >= 0"},
		{"zero concurrency", func(c *Config) { c.Run.Concurrency = 0 }, "run.concurrency must be >= 1"},
		{"zero row limit", func(c *Config) { c.Run.RowLimit = 0 }, "run.row_limit must be >= 1"},
		{"bad constraint", func(c *Config) { c.Run.VersionConstraint = "latest" }, "run.version_constraint"},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
