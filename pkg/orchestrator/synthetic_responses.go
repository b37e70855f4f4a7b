package orchestrator

import (
	"fmt"
	"strings"
)

// syntheticTemplates maps a tool name, then a ToolResult.Status(), to a
// response template with "{slot}"-style placeholders. These are the canned
// lines spoken back to the caller instead of waiting on another full LLM
// turn to narrate a tool result, matching the source's TEMPLATES table
// (translated to English for this rewrite, see design notes).
var syntheticTemplates = map[string]map[string]string{
	"process_appointment_request": {
		"SLOT_LIST":        "I have these times available: {slots}. Which one works for you?",
		"SLOT_FOUND_LATER": "That time is taken, but I have {slot} available. Does that work?",
		"NO_SLOT":          "I don't see any openings that day. Would you like to try another date?",
		"NO_MORE_LATE":     "That's the last slot I have later in the day. Would you like it, or a different day?",
		"NO_MORE_EARLY":    "That's the earliest slot I have that day. Would you like it, or a different day?",
		"NEED_EXACT_DATE":  "Could you give me the exact date you'd like to come in?",
		"OUT_OF_RANGE":     "I can only book within our normal scheduling window. Could you pick a nearer date?",
		"error":            "I ran into a problem checking the schedule. Could you repeat the date?",
	},
	"create_calendar_event": {
		"success":          "You're all set for {slot}. Anything else I can help with?",
		"validation_error": "I'm missing some details for that booking. Could you confirm the name and time?",
		"error":            "I wasn't able to complete that booking just now. Could we try again?",
	},
	"search_calendar_event_by_phone": {
		"found":    "I found your appointment on {slot}.",
		"not_found": "I don't see an appointment under that number. Would you like to book one?",
		"multiple": "I found a few appointments under that number. Could you tell me which date?",
		"error":    "I had trouble looking that up. Could you repeat the phone number?",
	},
	"edit_calendar_event": {
		"success": "Done, your appointment is now set for {slot}.",
		"error":   "I wasn't able to update that appointment. Could we try again?",
	},
	"delete_calendar_event": {
		"success": "Your appointment has been cancelled.",
		"error":   "I wasn't able to cancel that appointment. Could we try again?",
	},
}

// SyntheticResponse renders the template for toolName/result.Status(),
// substituting {slot} and {slots} from result when present. The caller
// falls back to a full LLM narration when no template matches this tool or
// status, so an empty, ok=false return is a normal, expected outcome.
func SyntheticResponse(toolName string, result ToolResult) (text string, ok bool) {
	byStatus, known := syntheticTemplates[toolName]
	if !known {
		return "", false
	}
	tmpl, known := byStatus[result.Status()]
	if !known {
		return "", false
	}

	tmpl = strings.ReplaceAll(tmpl, "{slot}", stringField(result, "slot"))
	tmpl = strings.ReplaceAll(tmpl, "{slots}", stringField(result, "slots"))
	return tmpl, true
}

func stringField(r ToolResult, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, fmt.Sprintf("%v", e))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
