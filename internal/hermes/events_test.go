package hermes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestChatEvent_OmitsMessageText(t *testing.T) {
	evt := ChatEvent{
		SessionID:  "sess-1",
		TurnID:     "turn-1",
		HasContext: true,
		Citations:  3,
		DurationMS: 1200,
		Timestamp:  time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	for _, key := range []string{"text", "query", "answer"} {
		if _, ok := raw[key]; ok {
			t.Errorf("event must not carry %q", key)
		}
	}
	if raw["session_id"] != "sess-1" {
		t.Errorf("expected session_id sess-1, got %v", raw["session_id"])
	}
	if raw["has_context"] != true {
		t.Errorf("expected has_context true, got %v", raw["has_context"])
	}
}

func TestSheetImportedEvent_KeepsZeroCounts(t *testing.T) {
	data, err := json.Marshal(SheetImportedEvent{SessionID: "s", Headers: 2, Rows: 0})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"rows":0`) {
		t.Errorf("expected rows:0 for a header-only sheet in %s", s)
	}
	if !strings.Contains(s, `"headers":2`) {
		t.Errorf("expected headers:2 in %s", s)
	}
	if strings.Contains(s, "error_kind") {
		t.Errorf("success event should not carry error_kind: %s", s)
	}
}

func TestSheetFailedEvent(t *testing.T) {
	data, err := json.Marshal(SheetFailedEvent{SessionID: "s", ErrorKind: "fetch_failure"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, `"rows"`) || strings.Contains(s, `"headers"`) {
		t.Errorf("failure event should not carry counts: %s", s)
	}
	if !strings.Contains(s, `"error_kind":"fetch_failure"`) {
		t.Errorf("expected error_kind in %s", s)
	}
}

func TestSubjectsShareNamespace(t *testing.T) {
	for _, s := range []string{SubjectSheetImported, SubjectSheetFailed, SubjectChatAnswered, SubjectChatFailed} {
		if !strings.HasPrefix(s, "deskchat.") {
			t.Errorf("subject %q outside deskchat namespace", s)
		}
	}
}
