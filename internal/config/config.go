// Package config loads ndc-test settings with viper.
//
// Sources are layered, lowest precedence first: built-in defaults, an
// optional config file (yaml, toml or json), NDC_TEST_* environment
// variables, then command-line flags bound by the CLI.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/synth"
)

// EnvPrefix prefixes every environment variable, e.g. NDC_TEST_ENDPOINT or
// NDC_TEST_RUN_CONCURRENCY.
const EnvPrefix = "NDC_TEST"

// Keys shared by defaults, flags and files.
const (
	KeyEndpoint          = "endpoint"
	KeyTimeout           = "request.timeout"
	KeyRateLimit         = "request.rate_limit"
	KeyRateBurst         = "request.rate_burst"
	KeyHeaders           = "request.headers"
	KeyConcurrency       = "run.concurrency"
	KeyRowLimit          = "run.row_limit"
	KeyProcedures        = "run.procedures"
	KeyVersionConstraint = "run.version_constraint"
	KeyRecord            = "record"
	KeyVerbose           = "log.verbose"
	KeyLogJSON           = "log.json"
)

// Config is the resolved ndc-test configuration.
type Config struct {
	Endpoint string        `mapstructure:"endpoint"`
	Request  RequestConfig `mapstructure:"request"`
	Run      RunConfig     `mapstructure:"run"`

	// Record is the SQLite file runs are recorded to; empty disables
	// recording.
	Record string    `mapstructure:"record"`
	Log    LogConfig `mapstructure:"log"`
}

// RequestConfig tunes the HTTP client.
type RequestConfig struct {
	Timeout   time.Duration     `mapstructure:"timeout"`
	RateLimit float64           `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst int               `mapstructure:"rate_burst"`
	Headers   map[string]string `mapstructure:"headers"`
}

// RunConfig tunes synthesis and execution.
type RunConfig struct {
	Concurrency       int    `mapstructure:"concurrency"`
	RowLimit          int    `mapstructure:"row_limit"`
	Procedures        bool   `mapstructure:"procedures"` // invoke zero-argument procedures
	VersionConstraint string `mapstructure:"version_constraint"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
	JSON    bool `mapstructure:"json"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyEndpoint, "")

	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyRateLimit, 0.0)
	v.SetDefault(KeyRateBurst, 1)
	v.SetDefault(KeyHeaders, map[string]string{})

	v.SetDefault(KeyConcurrency, 1)
	v.SetDefault(KeyRowLimit, synth.DefaultRowLimit)
	v.SetDefault(KeyProcedures, true)
	v.SetDefault(KeyVersionConstraint, ndc.DefaultVersionConstraint)

	v.SetDefault(KeyRecord, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyLogJSON, false)
}

// New returns a viper instance with defaults and environment binding. When
// configFile is non-empty it is read; its format follows the extension.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configFile != "" {
		if err := ReadFile(v, configFile); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// ReadFile merges a config file into v. Its format follows the extension.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

// Load resolves the configuration held by v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
