package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation    = "operation"
	KeyBackend      = "backend"
	KeyAccount      = "account"
	KeyUserHash     = "user_hash"
	KeyParticipants = "participants"
	KeySelection    = "selection_id"
	KeyDay          = "day"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
	KeyTool         = "tool"
)

// Status values for consistent logging.
// Duplicated from the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithBackend returns a logger with the calendar backend attribute set.
func WithBackend(logger *slog.Logger, backend string) *slog.Logger {
	return logger.With(slog.String(KeyBackend, backend))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

func Account(account string) slog.Attr {
	return slog.String(KeyAccount, account)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Selection returns a slog attribute for a slot selection session id.
func Selection(id string) slog.Attr {
	return slog.String(KeySelection, id)
}

// Day returns a slog attribute for a calendar date in ISO form.
func Day(t time.Time) slog.Attr {
	return slog.String(KeyDay, t.Format(time.DateOnly))
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Err returns a slog attribute for an error.
// A nil error yields an empty group, which slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
// The hash is case-insensitive so the same mailbox always correlates.
func AnonymizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
//
// Usage:
//
//	logger.Info("availability computed", logging.UserHash(organizer))
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// Participants returns a slog attribute listing anonymized participant identities.
func Participants(emails []string) slog.Attr {
	hashed := make([]string, 0, len(emails))
	for _, e := range emails {
		if h := AnonymizeEmail(e); h != "" {
			hashed = append(hashed, h)
		}
	}
	return slog.Any(KeyParticipants, hashed)
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is reported.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
