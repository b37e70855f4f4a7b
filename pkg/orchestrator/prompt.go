package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PromptContext carries the pieces of prompt assembly that vary per call
// but aren't part of Session.history: the caller's local clock and any
// ambient snippet (e.g. current weather) worth surfacing to the model.
type PromptContext struct {
	Now            time.Time
	Location       *time.Location
	AmbientContext string
}

// BuildSystemPrompt assembles the system message sent to the LLM provider:
// current local date/time, an optional ambient-context snippet, the
// operator-configured base prompt, a JSON listing of the tool schemas
// currently available to call (so the model always sees an accurate tool
// surface even as ToolRegistry.Register changes it), and the current
// Mode's nudge, if any.
func BuildSystemPrompt(basePrompt string, mode Mode, schemas []ToolSchema, pc PromptContext) string {
	var b strings.Builder

	loc := pc.Location
	if loc == nil {
		loc = time.UTC
	}
	now := pc.Now
	if now.IsZero() {
		now = time.Now()
	}
	b.WriteString("Current date/time: ")
	b.WriteString(now.In(loc).Format("Monday, 2006-01-02 15:04 MST"))

	if ambient := strings.TrimSpace(pc.AmbientContext); ambient != "" {
		b.WriteString("\n\n")
		b.WriteString(ambient)
	}

	if base := strings.TrimSpace(basePrompt); base != "" {
		b.WriteString("\n\n")
		b.WriteString(base)
	}

	if len(schemas) > 0 {
		if encoded, err := json.Marshal(schemas); err == nil {
			b.WriteString("\n\nAvailable tools (JSON schema): ")
			b.Write(encoded)
		}
	}

	if hint := modeHint(mode); hint != "" {
		b.WriteString("\n\n")
		b.WriteString(hint)
	}

	return b.String()
}

func modeHint(mode Mode) string {
	switch mode {
	case ModeCaptureLead:
		return "The caller is in the middle of leaving their name and phone number. Don't change topics until you have both."
	case ModeCreateAppt:
		return "The caller is booking a new appointment. Confirm the date, time, and name before calling create_calendar_event."
	case ModeEditAppt:
		return "The caller wants to change an existing appointment. Look it up by phone number before editing."
	case ModeDeleteAppt:
		return "The caller wants to cancel an existing appointment. Confirm which one before calling delete_calendar_event."
	default:
		return ""
	}
}

// TrimHistory keeps the most recent messages within budget, always keeping
// any leading system messages intact (callers assemble those separately,
// but TrimHistory is defensive in case history already carries one).
func TrimHistory(history []Message, maxMessages int) []Message {
	if maxMessages <= 0 || len(history) <= maxMessages {
		return history
	}
	lead := 0
	for lead < len(history) && history[lead].Role == RoleSystem {
		lead++
	}
	if lead >= maxMessages {
		return history[:lead]
	}
	out := append([]Message{}, history[:lead]...)
	return append(out, history[len(history)-(maxMessages-lead):]...)
}

// EstimateTokens is a crude token estimate (roughly 4 characters per token
// for English text). Prompt trimming does not call it: TrimToPromptBudget
// budgets 3 characters per token instead.
func EstimateTokens(messages []Message) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4
}

// TrimToPromptBudget drops the oldest history messages, keeping the most
// recent, until the total character count fits MAX_PROMPT_CHARS (the token
// budget times 3). A non-positive budget disables trimming.
func TrimToPromptBudget(history []Message, tokenBudget int) []Message {
	if tokenBudget <= 0 {
		return history
	}
	maxChars := tokenBudget * 3
	chars := func(msgs []Message) int {
		total := 0
		for _, m := range msgs {
			total += len(m.Content)
		}
		return total
	}
	if chars(history) <= maxChars {
		return history
	}
	for n := len(history) - 1; n > 0; n-- {
		trimmed := TrimHistory(history, n)
		if chars(trimmed) <= maxChars {
			return trimmed
		}
	}
	if len(history) == 0 {
		return history
	}
	return history[len(history)-1:]
}

// FormatToolResultForHistory renders a tool call's result as its
// JSON-serialized form so the LLM's next turn sees exactly what the tool
// returned.
func FormatToolResultForHistory(name string, result ToolResult) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(encoded)
}
