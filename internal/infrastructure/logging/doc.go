// Package logging provides structured logging for Iris Core.
//
// It wraps Go's standard log/slog package so every component logs through
// the same handler with consistent default fields.
//
// # Configuration
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("session loop started", "poll_timeout_ms", 5000)
//	logger.Error("actuator call failed", "device", "fan", "error", err)
//
// Components derive child loggers with With("component", name) so log
// lines can be filtered per subsystem.
package logging
