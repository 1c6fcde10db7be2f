package logging

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestAttrHelpers(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("availability.compute"), KeyOperation, "availability.compute"},
		{"backend", Backend("graph"), KeyBackend, "graph"},
		{"account", Account("default"), KeyAccount, "default"},
		{"tool", Tool("find_common_availability"), KeyTool, "find_common_availability"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"selection", Selection("abc"), KeySelection, "abc"},
		{"day", Day(time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)), KeyDay, "2025-03-04"},
		{"duration", Duration(1500 * time.Millisecond), KeyDuration, "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithOperation(logger, "op") == nil || WithBackend(logger, "graph") == nil {
		t.Error("With* helpers must return a logger")
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err() = %v", attr)
	}

	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty group", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	h := AnonymizeEmail("jane@example.com")
	if len(h) != 21 || h[:5] != "user:" {
		t.Errorf("AnonymizeEmail() = %q, want user: + 16 hex chars", h)
	}
	if h != AnonymizeEmail("  JANE@example.com ") {
		t.Error("AnonymizeEmail should ignore case and surrounding space")
	}
	if h == AnonymizeEmail("john@example.com") {
		t.Error("different emails should produce different hashes")
	}
}

func TestParticipants(t *testing.T) {
	attr := Participants([]string{"a@example.com", "", "b@example.com"})
	if attr.Key != KeyParticipants {
		t.Fatalf("key = %q", attr.Key)
	}
	hashed, ok := attr.Value.Any().([]string)
	if !ok {
		t.Fatalf("value type = %T, want []string", attr.Value.Any())
	}
	if len(hashed) != 2 {
		t.Errorf("got %d hashes, want 2 (empty entries skipped)", len(hashed))
	}
	for _, h := range hashed {
		if h == "a@example.com" || h == "b@example.com" {
			t.Errorf("participant %q was not anonymized", h)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"eyJ0eXAiOiJKV1QiLCJub25jZSI6", "[token:28 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}
