package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDSNEnv          = "DSN"
	DefaultHTTPTimeout     = 1 * time.Second
	DefaultMaxConcurrent   = 10
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the top-level configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Sentry SentryConfig `yaml:"sentry"`
	HTTP   HTTPConfig   `yaml:"http"`

	// ShutdownTimeout bounds how long the process waits for in-flight
	// requests to settle before exiting.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// SentryConfig holds the options handed to the capture client on every send.
type SentryConfig struct {
	// DSNEnv is the name of the environment variable that holds the DSN.
	DSNEnv string `yaml:"dsn_env"`

	// HTTPCompression gzips envelope bodies before they are posted.
	HTTPCompression bool `yaml:"http_compression"`

	Environment string `yaml:"environment"`
	Release     string `yaml:"release"`
	ServerName  string `yaml:"server_name"`
}

// DSN returns the connection string resolved from the environment.
// Returns empty string if DSNEnv is unset or the variable is not found.
func (s SentryConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// HTTPConfig configures the underlying async HTTP client. It is read once,
// when the transport is first constructed.
type HTTPConfig struct {
	// Timeout is the per-exchange timeout, covering connect through body read.
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrent caps the number of exchanges on the wire at once.
	// Further exchanges queue in the background; Send never waits on it.
	MaxConcurrent int `yaml:"max_concurrent"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS dial options for self-hosted ingestion endpoints.
type TLSConfig struct {
	// CAFile is an optional PEM bundle used instead of the system roots.
	CAFile string `yaml:"ca_file"`

	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// MetricsConfig controls the Prometheus textfile written at shutdown.
type MetricsConfig struct {
	// Textfile is the output path. Empty disables the export.
	Textfile string `yaml:"textfile"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is used
// as-is when no config file exists.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Sentry: SentryConfig{
			DSNEnv:          DefaultDSNEnv,
			HTTPCompression: true,
		},
		HTTP: HTTPConfig{
			Timeout:       DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// validate checks required fields and structural constraints.
// A missing DSN value is not a config error: the transport reports it on send.
func validate(cfg *Config) error {
	if cfg.Sentry.DSNEnv == "" {
		return fmt.Errorf("sentry.dsn_env is required")
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if cfg.HTTP.MaxConcurrent < 0 {
		return fmt.Errorf("http.max_concurrent must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if cfg.HTTP.TLS.CAFile != "" {
		if _, err := os.Stat(cfg.HTTP.TLS.CAFile); err != nil {
			return fmt.Errorf("http.tls.ca_file: %w", err)
		}
	}
	return nil
}
