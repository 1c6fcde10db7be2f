package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestToolInvocation_Lifecycle(t *testing.T) {
	ti := NewToolInvocation("book_meeting").
		WithAccount("work").
		WithUser("alice@example.com").
		WithBackend(BackendGraph).
		WithSelection("abc")

	if ti.Status() != StatusError {
		t.Errorf("pending invocation should not report success")
	}
	ti.CompleteSuccess()
	if !ti.Success || ti.Status() != StatusSuccess {
		t.Errorf("expected success after CompleteSuccess")
	}
	if ti.Duration < 0 {
		t.Errorf("negative duration %v", ti.Duration)
	}

	failed := NewToolInvocation("book_meeting").CompleteWithError(errors.New("quota"))
	if failed.Success || failed.Error != "quota" {
		t.Errorf("unexpected failed invocation %+v", failed)
	}
}

func TestAuditLogger_RedactsByDefault(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf), AuditConfig{Enabled: true})

	al.LogToolInvocation(NewToolInvocation("search_users").WithUser("alice@example.com").CompleteSuccess())

	if strings.Contains(buf.String(), "alice@example.com") {
		t.Fatalf("audit line leaked the address: %s", buf.String())
	}
	rec := decodeLine(t, &buf)
	if rec["msg"] != "tool_executed" || rec["level"] != "INFO" {
		t.Errorf("unexpected record %v", rec)
	}
	if rec["user_domain"] != "example.com" {
		t.Errorf("user_domain = %v", rec["user_domain"])
	}
	if _, ok := rec["user_hash"]; !ok {
		t.Error("expected user_hash")
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf), AuditConfig{Enabled: true, IncludePII: true})

	al.LogToolInvocation(NewToolInvocation("book_meeting").
		WithUser("alice@example.com").
		CompleteWithError(errors.New("denied")))

	rec := decodeLine(t, &buf)
	if rec["user"] != "alice@example.com" {
		t.Errorf("user = %v", rec["user"])
	}
	if rec["msg"] != "tool_failed" || rec["level"] != "WARN" {
		t.Errorf("unexpected record %v", rec)
	}
	if rec["error"] != "denied" {
		t.Errorf("error = %v", rec["error"])
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	NewAuditLogger(newJSONLogger(&buf), AuditConfig{}).LogToolInvocation(NewToolInvocation("x").CompleteSuccess())

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation("x").CompleteSuccess())

	if buf.Len() != 0 {
		t.Errorf("disabled audit logger wrote %q", buf.String())
	}
}
