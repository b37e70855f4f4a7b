package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Five tool-call surface forms an LLM response may use, matched in this
// order and de-duplicated by tool name (first match per name wins). Mirrors
// the pattern set the source's ToolEngine accepted, since different model
// families emit different call syntaxes and the system has to tolerate all
// of them without knowing in advance which one a given provider will use.
var (
	bracketCallPattern  = regexp.MustCompile(`\[(\w+)\((.*?)\)\]`)
	bracketNoArgPattern = regexp.MustCompile(`\[(\w+)\]`)
	jsonCallPattern     = regexp.MustCompile(`\{\s*"type"\s*:\s*"function".*?\}\}`)
	xmlCallPattern      = regexp.MustCompile(`(?s)<function\s*=\s*(\w+)>(.*?)</function>`)
	pythonTagPattern    = regexp.MustCompile(`<\|python_tag\|>\s*(\w+)\.call\((.*?)\)`)
)

// sanitizeEndCall rewrites the common `end_call({"reason": "..."})` malformed
// form some models emit (a JSON object nested inside the bracket-call
// syntax) into the well-formed bracket form `[end_call(reason="...")]`
// before the regular patterns run.
var endCallSanitizePattern = regexp.MustCompile(`end_call\(\s*\{\s*"reason"\s*:\s*"([^"]*)"\s*\}\s*\)`)

func sanitizeEndCall(text string) string {
	return endCallSanitizePattern.ReplaceAllString(text, `[end_call(reason="$1")]`)
}

// ParseToolCalls scans an LLM response for tool invocations in any of the
// recognized surface forms and returns them in first-seen order, one per
// distinct tool name.
func ParseToolCalls(text string) []ToolCall {
	text = sanitizeEndCall(text)

	var calls []ToolCall
	seen := make(map[string]bool)

	add := func(name string, args map[string]any) {
		if seen[name] {
			return
		}
		seen[name] = true
		calls = append(calls, ToolCall{Name: name, Arguments: args})
	}

	for _, m := range bracketCallPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], parseArgList(m[2]))
	}
	for _, m := range bracketNoArgPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], map[string]any{})
	}
	for _, raw := range jsonCallPattern.FindAllString(text, -1) {
		if name, args, ok := parseJSONCall(raw); ok {
			add(name, args)
		}
	}
	for _, m := range xmlCallPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], parseArgList(m[2]))
	}
	for _, m := range pythonTagPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], parseArgList(m[2]))
	}

	return calls
}

// parseArgList parses a comma-separated `key="value", key2=123` argument
// list as used by the bracket, XML, and python-tag call forms. Values are
// returned as strings except for bare true/false/numeric literals.
func parseArgList(raw string) map[string]any {
	args := make(map[string]any)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args
	}

	for _, part := range splitTopLevelCommas(raw) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		args[key] = coerceLiteral(val)
	}
	return args
}

// splitTopLevelCommas splits on commas that are not inside a quoted string,
// so values like key="a, b" survive intact.
func splitTopLevelCommas(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// coerceLiteral coerces one raw argument value to int, float, bool, or null
// where applicable; otherwise it is kept as a string, with any trailing
// comma a model stuttered out (e.g. "tomorrow",) stripped.
func coerceLiteral(val string) any {
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		return strings.TrimSuffix(val[1:len(val)-1], ",")
	}
	switch val {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	var n json.Number
	if err := json.Unmarshal([]byte(val), &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return strings.TrimSuffix(val, ",")
}

// StripToolCallText removes every matched tool-call pattern (plus the
// naked end_call shape the sanitizer rewrites first) from text, trims the
// remainder, and returns it as the candidate user-facing reply.
func StripToolCallText(text string) string {
	text = sanitizeEndCall(text)
	text = bracketCallPattern.ReplaceAllString(text, "")
	text = bracketNoArgPattern.ReplaceAllString(text, "")
	text = jsonCallPattern.ReplaceAllString(text, "")
	text = xmlCallPattern.ReplaceAllString(text, "")
	text = pythonTagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func parseJSONCall(raw string) (name string, args map[string]any, ok bool) {
	var envelope struct {
		Type     string `json:"type"`
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil || envelope.Function.Name == "" {
		return "", nil, false
	}

	parsed := make(map[string]any)
	if len(envelope.Function.Arguments) > 0 {
		switch envelope.Function.Arguments[0] {
		case '"':
			var asString string
			if err := json.Unmarshal(envelope.Function.Arguments, &asString); err == nil {
				_ = json.Unmarshal([]byte(asString), &parsed)
			}
		default:
			_ = json.Unmarshal(envelope.Function.Arguments, &parsed)
		}
	}
	return envelope.Function.Name, parsed, true
}
