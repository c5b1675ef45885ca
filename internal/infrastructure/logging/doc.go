// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a *zap.Logger and name themselves (terminal, reaper, ws,
// http) so every line can be filtered by subsystem. Session-scoped lines carry
// a session_id field.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Component("terminal")
//	log.Info("session created", logging.SessionID(id))
package logging
