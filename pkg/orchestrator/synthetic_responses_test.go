package orchestrator

import (
	"strings"
	"testing"
)

func TestSyntheticResponseSubstitutesSlot(t *testing.T) {
	text, ok := SyntheticResponse("create_calendar_event", ToolResult{"status": "success", "slot": "Tuesday at 3pm"})
	if !ok {
		t.Fatal("expected a template match")
	}
	if !strings.Contains(text, "Tuesday at 3pm") {
		t.Errorf("expected slot substituted, got %q", text)
	}
}

func TestSyntheticResponseUnknownToolFallsThrough(t *testing.T) {
	_, ok := SyntheticResponse("registrar_lead", ToolResult{"status": "success"})
	if ok {
		t.Error("expected no template for a tool without one, so caller falls back to LLM narration")
	}
}

func TestSyntheticResponseErrorStatus(t *testing.T) {
	text, ok := SyntheticResponse("create_calendar_event", ToolResult{"error": "db down"})
	if !ok {
		t.Fatal("expected error template match")
	}
	if text == "" {
		t.Error("expected non-empty error template")
	}
}
