package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/slcflow/internal/batch"
	slchttp "github.com/ligustah/slcflow/internal/http"
	"github.com/ligustah/slcflow/internal/orbit"
	"github.com/ligustah/slcflow/internal/stack"
	"github.com/ligustah/slcflow/internal/tools"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "SLCFLOW_"

// Config defines configuration for the slcflow CLI.
type Config struct {
	OrbitURL  string        `yaml:"orbit_url"`
	UserAgent string        `yaml:"user_agent"`
	Workers   int           `yaml:"workers"`
	Force     bool          `yaml:"force"`
	Progress  bool          `yaml:"progress"`
	Telemetry bool          `yaml:"telemetry"`
	LogDir    string        `yaml:"log_dir"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     RetryConfig   `yaml:"retry"`
	Pool      PoolConfig    `yaml:"pool"`
	Tools     ToolsConfig   `yaml:"tools"`
	Stack     StackConfig   `yaml:"stack"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// PoolConfig sizes the parallel download and extraction pools as
// clamp(cpus/divisor, min, max).
type PoolConfig struct {
	Divisor int `yaml:"divisor"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	DEM           string `yaml:"dem"`
	StackSentinel string `yaml:"stack_sentinel"`
	Run           string `yaml:"run"`
}

// StackConfig configures the run-file step runner.
type StackConfig struct {
	ExpectedSteps int `yaml:"expected_steps"`
	Cores         int `yaml:"cores"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		OrbitURL:  orbit.DefaultListingURL,
		UserAgent: slchttp.DefaultUserAgent,
		Timeout:   666 * time.Second,
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Pool: PoolConfig{
			Divisor: batch.TransferPolicy.Divisor,
			Min:     batch.TransferPolicy.Min,
			Max:     batch.TransferPolicy.Max,
		},
		Tools: ToolsConfig{
			DEM:           tools.DefaultDEM,
			StackSentinel: tools.DefaultStackSentinel,
			Run:           tools.DefaultRun,
		},
		Stack: StackConfig{
			ExpectedSteps: stack.DefaultExpectedSteps,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	OrbitURL  string          `yaml:"orbit_url"`
	UserAgent string          `yaml:"user_agent"`
	Workers   int             `yaml:"workers"`
	Force     bool            `yaml:"force"`
	Progress  bool            `yaml:"progress"`
	Telemetry bool            `yaml:"telemetry"`
	LogDir    string          `yaml:"log_dir"`
	Timeout   string          `yaml:"timeout"`
	Retry     yamlRetryConfig `yaml:"retry"`
	Pool      PoolConfig      `yaml:"pool"`
	Tools     ToolsConfig     `yaml:"tools"`
	Stack     StackConfig     `yaml:"stack"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	timeout, err := parseDuration("timeout", yc.Timeout)
	if err != nil {
		return Config{}, err
	}
	backoff, err := parseDuration("retry.backoff", yc.Retry.Backoff)
	if err != nil {
		return Config{}, err
	}
	maxBackoff, err := parseDuration("retry.max_backoff", yc.Retry.MaxBackoff)
	if err != nil {
		return Config{}, err
	}

	return Default().Merge(Config{
		OrbitURL:  yc.OrbitURL,
		UserAgent: yc.UserAgent,
		Workers:   yc.Workers,
		Force:     yc.Force,
		Progress:  yc.Progress,
		Telemetry: yc.Telemetry,
		LogDir:    yc.LogDir,
		Timeout:   timeout,
		Retry: RetryConfig{
			Attempts:   yc.Retry.Attempts,
			Backoff:    backoff,
			MaxBackoff: maxBackoff,
		},
		Pool:  yc.Pool,
		Tools: yc.Tools,
		Stack: yc.Stack,
	}), nil
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SLCFLOW_ prefix.
func (c *Config) LoadFromEnv() error {
	strs := map[string]*string{
		"ORBIT_URL":            &c.OrbitURL,
		"USER_AGENT":           &c.UserAgent,
		"LOG_DIR":              &c.LogDir,
		"TOOLS_DEM":            &c.Tools.DEM,
		"TOOLS_STACK_SENTINEL": &c.Tools.StackSentinel,
		"TOOLS_RUN":            &c.Tools.Run,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WORKERS":              &c.Workers,
		"RETRY_ATTEMPTS":       &c.Retry.Attempts,
		"POOL_DIVISOR":         &c.Pool.Divisor,
		"POOL_MIN":             &c.Pool.Min,
		"POOL_MAX":             &c.Pool.Max,
		"STACK_EXPECTED_STEPS": &c.Stack.ExpectedSteps,
		"STACK_CORES":          &c.Stack.Cores,
	}
	for key, dst := range ints {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":           &c.Timeout,
		"RETRY_BACKOFF":     &c.Retry.Backoff,
		"RETRY_MAX_BACKOFF": &c.Retry.MaxBackoff,
	}
	for key, dst := range durations {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv(EnvPrefix + "FORCE"); v != "" {
		c.Force = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv(EnvPrefix + "TELEMETRY"); v != "" {
		c.Telemetry = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.OrbitURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: orbit_url must be an http(s) URL, got %q", c.OrbitURL)
	}
	if c.Workers < 0 {
		return errors.New("config: workers must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if c.Pool.Divisor <= 0 || c.Pool.Min <= 0 {
		return errors.New("config: pool.divisor and pool.min must be positive")
	}
	if c.Pool.Max < c.Pool.Min {
		return errors.New("config: pool.max must not be less than pool.min")
	}
	if c.Tools.DEM == "" || c.Tools.StackSentinel == "" || c.Tools.Run == "" {
		return errors.New("config: tool names must not be empty")
	}
	if c.Stack.ExpectedSteps <= 0 {
		return errors.New("config: stack.expected_steps must be positive")
	}
	if c.Stack.Cores < 0 {
		return errors.New("config: stack.cores must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.OrbitURL != "" {
		c.OrbitURL = override.OrbitURL
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Force {
		c.Force = override.Force
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Telemetry {
		c.Telemetry = override.Telemetry
	}
	if override.LogDir != "" {
		c.LogDir = override.LogDir
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Pool.Divisor != 0 {
		c.Pool.Divisor = override.Pool.Divisor
	}
	if override.Pool.Min != 0 {
		c.Pool.Min = override.Pool.Min
	}
	if override.Pool.Max != 0 {
		c.Pool.Max = override.Pool.Max
	}
	if override.Tools.DEM != "" {
		c.Tools.DEM = override.Tools.DEM
	}
	if override.Tools.StackSentinel != "" {
		c.Tools.StackSentinel = override.Tools.StackSentinel
	}
	if override.Tools.Run != "" {
		c.Tools.Run = override.Tools.Run
	}
	if override.Stack.ExpectedSteps != 0 {
		c.Stack.ExpectedSteps = override.Stack.ExpectedSteps
	}
	if override.Stack.Cores != 0 {
		c.Stack.Cores = override.Stack.Cores
	}
	return c
}

// HTTPOptions converts the transport settings into client options.
func (c Config) HTTPOptions() slchttp.Options {
	opts := slchttp.DefaultOptions()
	opts.UserAgent = c.UserAgent
	opts.Timeout = c.Timeout
	opts.RetryAttempts = c.Retry.Attempts
	opts.RetryBackoff = c.Retry.Backoff
	opts.RetryMaxBackoff = c.Retry.MaxBackoff
	return opts
}

// TransferWorkers sizes the download and extraction pools. An explicit
// Workers setting wins over the pool policy.
func (c Config) TransferWorkers() int {
	p := batch.Policy{Divisor: c.Pool.Divisor, Min: c.Pool.Min, Max: c.Pool.Max}
	return p.Workers(c.Workers)
}

// StackCores is the core count passed to every run step.
func (c Config) StackCores() int {
	return batch.CorePolicy.Workers(c.Stack.Cores)
}
