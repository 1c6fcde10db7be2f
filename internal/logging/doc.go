// Package logging provides structured logging helpers for meetfinder.
//
// All logging goes through log/slog. This package adds consistent attribute
// keys, a small Logger interface for injectable components, and helpers that
// keep participant identities out of log output:
//
//	logger := logging.WithOperation(slog.Default(), "availability.compute")
//	logger.Info("computed common free time",
//	    logging.Participants(identities),
//	    logging.Status(logging.StatusSuccess))
//
// Participant emails are hashed so entries can be correlated without
// exposing PII. Tokens are never logged, only their length.
package logging
