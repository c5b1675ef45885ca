package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Terminal  TerminalConfig  `yaml:"terminal" toml:"terminal"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host            string   `envconfig:"HOST" yaml:"host" toml:"host"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// TerminalConfig holds PTY session manager configuration.
type TerminalConfig struct {
	MaxSessions    int      `envconfig:"TERMINAL_MAX_SESSIONS" yaml:"max_sessions" toml:"max_sessions"`
	RetryAttempts  int      `envconfig:"TERMINAL_RETRY_ATTEMPTS" yaml:"retry_attempts" toml:"retry_attempts"`
	RetryBaseDelay Duration `envconfig:"TERMINAL_RETRY_BASE_DELAY" yaml:"retry_base_delay" toml:"retry_base_delay"`
	IdleTimeout    Duration `envconfig:"TERMINAL_IDLE_TIMEOUT" yaml:"idle_timeout" toml:"idle_timeout"`
	ReapInterval   Duration `envconfig:"TERMINAL_REAP_INTERVAL" yaml:"reap_interval" toml:"reap_interval"`
	Shell          string   `envconfig:"TERMINAL_SHELL" yaml:"shell" toml:"shell"`
	WorkingDir     string   `envconfig:"TERMINAL_WORKDIR" yaml:"working_dir" toml:"working_dir"`
	Rows           uint16   `envconfig:"TERMINAL_ROWS" yaml:"rows" toml:"rows"`
	Cols           uint16   `envconfig:"TERMINAL_COLS" yaml:"cols" toml:"cols"`
	ReadBufferSize int      `envconfig:"TERMINAL_READ_BUFFER" yaml:"read_buffer" toml:"read_buffer"`
	Term           string   `envconfig:"TERMINAL_TERM" yaml:"term" toml:"term"`
	Path           string   `envconfig:"TERMINAL_PATH" yaml:"path" toml:"path"`
	ForceColor     bool     `envconfig:"TERMINAL_FORCE_COLOR" yaml:"force_color" toml:"force_color"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// FileEnv names the environment variable pointing at an optional config file.
const FileEnv = "CONFIG_FILE"

// Load builds configuration from defaults, then the file named by CONFIG_FILE
// (if any), then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	opts := terminal.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "127.0.0.1",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Terminal: TerminalConfig{
			MaxSessions:    opts.MaxSessions,
			RetryAttempts:  opts.RetryAttempts,
			RetryBaseDelay: Duration(opts.RetryBaseDelay),
			IdleTimeout:    Duration(opts.IdleTimeout),
			ReapInterval:   Duration(opts.ReapInterval),
			Rows:           opts.Rows,
			Cols:           opts.Cols,
			ReadBufferSize: opts.ReadBufferSize,
			Term:           opts.Term,
			ForceColor:     opts.ForceColor,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the session manager cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Terminal.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("terminal max_sessions must be positive, got %d", c.Terminal.MaxSessions))
	}
	if c.Terminal.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("terminal retry_attempts must be positive, got %d", c.Terminal.RetryAttempts))
	}
	if c.Terminal.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("terminal retry_base_delay must not be negative"))
	}
	if c.Terminal.IdleTimeout <= 0 || c.Terminal.ReapInterval <= 0 {
		errs = append(errs, errors.New("terminal idle_timeout and reap_interval must be positive"))
	}
	if c.Terminal.Rows == 0 || c.Terminal.Cols == 0 {
		errs = append(errs, errors.New("terminal rows and cols must be non-zero"))
	}
	if c.Terminal.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("terminal read_buffer must be positive, got %d", c.Terminal.ReadBufferSize))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit rps and burst must be positive when enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Options converts the terminal section into session manager options.
func (t TerminalConfig) Options() terminal.Options {
	return terminal.Options{
		MaxSessions:    t.MaxSessions,
		RetryAttempts:  t.RetryAttempts,
		RetryBaseDelay: t.RetryBaseDelay.Std(),
		IdleTimeout:    t.IdleTimeout.Std(),
		ReapInterval:   t.ReapInterval.Std(),
		Shell:          t.Shell,
		WorkingDir:     t.WorkingDir,
		Rows:           t.Rows,
		Cols:           t.Cols,
		ReadBufferSize: t.ReadBufferSize,
		Term:           t.Term,
		Path:           t.Path,
		ForceColor:     t.ForceColor,
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
