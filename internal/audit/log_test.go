package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	orig := logger.Writer()
	logger.SetFlags(0)

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(orig) })
	return &buf
}

func TestLogEventIncludesActorAndRequest(t *testing.T) {
	buf := captureLog(t)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = auth.ContextWithUser(ctx, "admin-1", auth.RoleAdmin)

	err := LogEvent(ctx, "admin.user.delete", map[string]any{
		"user_id": "victim-1",
	})
	if err != nil {
		t.Fatalf("log event: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "admin.user.delete" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("unexpected request_id: %v", entry["request_id"])
	}
	if entry["actor_id"] != "admin-1" || entry["actor_role"] != auth.RoleAdmin {
		t.Fatalf("unexpected actor fields: %v %v", entry["actor_id"], entry["actor_role"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["user_id"] != "victim-1" {
		t.Fatalf("unexpected fields: %v", entry["fields"])
	}
	if entry["ts"] == "" {
		t.Fatal("expected timestamp")
	}
}

func TestLogEventRequiresName(t *testing.T) {
	captureLog(t)

	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}

func TestLogEventWithoutContext(t *testing.T) {
	buf := captureLog(t)

	if err := LogEvent(context.Background(), "admin.user.update", nil); err != nil {
		t.Fatalf("log event: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if _, ok := entry["actor_id"]; ok {
		t.Fatal("expected no actor without authenticated context")
	}
	if _, ok := entry["fields"]; !ok {
		t.Fatal("expected empty fields object")
	}
}
