// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable Load reads the config
// file path from.
const EnvConfigPath = "DOCBRIDGE_CONFIG"

// DefaultConnectionEnv is the environment variable that carries the
// PostgreSQL connection string unless connection.env says otherwise.
const DefaultConnectionEnv = "MY_POSTGRES_DATABASE_URL"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Log formats accepted by log.format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the docbridge configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Bridge configures the FerretDB bridge process.
	Bridge BridgeConfig `yaml:"bridge"`

	// Connection configures where the backing-store URL comes from.
	Connection ConnectionConfig `yaml:"connection"`

	// Readiness configures the readiness gate.
	Readiness ReadinessConfig `yaml:"readiness"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Bridge    *BridgeConfig    `yaml:"bridge,omitempty"`
	Readiness *ReadinessConfig `yaml:"readiness,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// BridgeConfig configures the bridge process.
type BridgeConfig struct {
	// Binary is the path to the FerretDB executable. Relative paths are
	// resolved against the working directory.
	// Default: ./ferretdb
	Binary string `yaml:"binary"`

	// ScratchDir is the bridge's working directory. It must not be the
	// application's own working directory.
	// Default: ${TMPDIR}/docbridge
	ScratchDir string `yaml:"scratch_dir"`

	// ExpectedDigest is the hex BLAKE3 digest the binary must have.
	// Empty disables verification.
	ExpectedDigest string `yaml:"expected_digest"`
}

// ConnectionConfig configures the backing-store connection string.
type ConnectionConfig struct {
	// Env is the environment variable holding the PostgreSQL URL.
	// Default: MY_POSTGRES_DATABASE_URL
	Env string `yaml:"env"`
}

// ReadinessConfig configures the readiness gate.
type ReadinessConfig struct {
	// Policy is "probe" (wait for the bridge port) or "none".
	// Default: probe
	Policy string `yaml:"policy"`

	// InitialInterval is the first wait between probe dials.
	// Default: 50ms
	InitialInterval string `yaml:"initial_interval"`

	// MaxInterval caps the wait between probe dials.
	// Default: 1s
	MaxInterval string `yaml:"max_interval"`

	// Timeout bounds the whole probe.
	// Default: 10s
	Timeout string `yaml:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is auto (text on a terminal, JSON otherwise), text, or json.
	// Default: auto
	Format string `yaml:"format"`
}

// Default returns the default configuration. These defaults are also
// the base the config file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Bridge: BridgeConfig{
			Binary:     "./ferretdb",
			ScratchDir: filepath.Join(os.TempDir(), "docbridge"),
		},
		Connection: ConnectionConfig{
			Env: DefaultConnectionEnv,
		},
		Readiness: ReadinessConfig{
			Policy:          "probe",
			InitialInterval: "50ms",
			MaxInterval:     "1s",
			Timeout:         "10s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}

// Load loads configuration from the file named by DOCBRIDGE_CONFIG, or
// returns Default when it is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfigPath)
	if configPath == "" {
		cfg := Default()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// Environment variables do not override config values. The only
// expansion performed is ${HOME}, ${TMPDIR} and similar path variables
// for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// productionDefaults are applied beneath the file's production section:
// machine-readable logs and an always-on readiness probe unless the
// section says otherwise.
func productionDefaults() *ConfigOverrides {
	return &ConfigOverrides{
		Readiness: &ReadinessConfig{Policy: "probe"},
		Log:       &LogConfig{Format: FormatJSON},
	}
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	switch c.Environment {
	case Development:
		c.applyOverrides(c.Development)
	case Staging:
		c.applyOverrides(c.Staging)
	case Production:
		c.applyOverrides(productionDefaults())
		c.applyOverrides(c.Production)
	}
}

// applyOverrides copies every non-empty field of overrides into c.
func (c *Config) applyOverrides(overrides *ConfigOverrides) {
	if overrides == nil {
		return
	}

	if overrides.Bridge != nil {
		if overrides.Bridge.Binary != "" {
			c.Bridge.Binary = overrides.Bridge.Binary
		}
		if overrides.Bridge.ScratchDir != "" {
			c.Bridge.ScratchDir = overrides.Bridge.ScratchDir
		}
		if overrides.Bridge.ExpectedDigest != "" {
			c.Bridge.ExpectedDigest = overrides.Bridge.ExpectedDigest
		}
	}

	if overrides.Readiness != nil {
		if overrides.Readiness.Policy != "" {
			c.Readiness.Policy = overrides.Readiness.Policy
		}
		if overrides.Readiness.InitialInterval != "" {
			c.Readiness.InitialInterval = overrides.Readiness.InitialInterval
		}
		if overrides.Readiness.MaxInterval != "" {
			c.Readiness.MaxInterval = overrides.Readiness.MaxInterval
		}
		if overrides.Readiness.Timeout != "" {
			c.Readiness.Timeout = overrides.Readiness.Timeout
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}

	c.Bridge.Binary = expandVars(c.Bridge.Binary, vars)
	c.Bridge.ScratchDir = expandVars(c.Bridge.ScratchDir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Bridge.Binary == "" {
		errs = append(errs, errors.New("bridge.binary is required"))
	}
	if c.Bridge.ScratchDir == "" {
		errs = append(errs, errors.New("bridge.scratch_dir is required"))
	}
	if c.Connection.Env == "" {
		errs = append(errs, errors.New("connection.env is required"))
	}

	policies := []string{"probe", "none"}
	if !slices.Contains(policies, c.Readiness.Policy) {
		errs = append(errs, fmt.Errorf("readiness.policy must be one of: %v", policies))
	}
	if _, err := c.Readiness.Bounds(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	formats := []string{FormatAuto, FormatText, FormatJSON}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ConnectionURL returns the PostgreSQL connection string from the
// environment variable named by connection.env.
func (c *Config) ConnectionURL() (string, error) {
	value := os.Getenv(c.Connection.Env)
	if value == "" {
		return "", fmt.Errorf("config: environment variable %s (connection.env) is not set", c.Connection.Env)
	}
	return value, nil
}

// BinaryPath returns bridge.binary as an absolute path.
func (c *Config) BinaryPath() (string, error) {
	path, err := filepath.Abs(c.Bridge.Binary)
	if err != nil {
		return "", fmt.Errorf("config: resolving bridge.binary %s: %w", c.Bridge.Binary, err)
	}
	return path, nil
}

// Bounds holds the parsed readiness durations.
type Bounds struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// Bounds parses the readiness durations. Each must be positive.
func (r ReadinessConfig) Bounds() (Bounds, error) {
	var bounds Bounds
	fields := []struct {
		name   string
		value  string
		target *time.Duration
	}{
		{"readiness.initial_interval", r.InitialInterval, &bounds.InitialInterval},
		{"readiness.max_interval", r.MaxInterval, &bounds.MaxInterval},
		{"readiness.timeout", r.Timeout, &bounds.Timeout},
	}
	for _, field := range fields {
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			return Bounds{}, fmt.Errorf("%s: %w", field.name, err)
		}
		if duration <= 0 {
			return Bounds{}, fmt.Errorf("%s must be positive, got %s", field.name, field.value)
		}
		*field.target = duration
	}
	if bounds.MaxInterval < bounds.InitialInterval {
		return Bounds{}, fmt.Errorf("readiness.max_interval (%s) is less than readiness.initial_interval (%s)",
			r.MaxInterval, r.InitialInterval)
	}
	return bounds, nil
}

// SlogLevel parses log.level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
