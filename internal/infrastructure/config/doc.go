// Package config provides 12-factor configuration management for ptyd.
//
// Configuration starts from built-in defaults, is overlaid by an optional
// YAML or TOML file named by CONFIG_FILE, and finally by environment
// variables. Durations are Go duration strings everywhere ("100ms", "30m").
//
// Configuration Sections:
//   - Server: HTTP listen address and shutdown timeout
//   - Terminal: session ceiling, pty retry/backoff, idle reaping, shell and size defaults
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg, err := config.Load()
//	manager := terminal.NewManager(cfg.Terminal.Options(), hub, logger)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - TERMINAL_MAX_SESSIONS, TERMINAL_RETRY_ATTEMPTS, TERMINAL_RETRY_BASE_DELAY
//   - TERMINAL_IDLE_TIMEOUT, TERMINAL_REAP_INTERVAL
//   - TERMINAL_SHELL, TERMINAL_WORKDIR, TERMINAL_ROWS, TERMINAL_COLS
//   - TERMINAL_READ_BUFFER, TERMINAL_TERM, TERMINAL_PATH, TERMINAL_FORCE_COLOR
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//
// TERMINAL_RETRY_ATTEMPTS is the total number of pty open attempts, the
// first one included.
package config
