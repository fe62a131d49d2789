// Package logging provides structured logging for FleetDeck Core.
//
// It wraps log/slog with configuration-driven level, format and output
// selection, plus default service/version fields on every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("session connected", "user_id", userID)
//
//	// Component-scoped child loggers:
//	syncLog := log.With("component", "sync")
package logging
