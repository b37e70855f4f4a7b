// Package textchat provides a text-only collaborator path: the same
// decision engine (LLM + tool calls) the call orchestrator drives, without
// any STT/TTS/audio concerns, for channels like a web widget or SMS
// handoff that share the voice agent's tool vocabulary and scheduling
// backend.
package textchat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
)

var errConversationEnded = errors.New("conversation already ended")

// Session is one ongoing text conversation. It is not safe for concurrent
// use from more than one goroutine at a time per session.
type Session struct {
	llm    orchestrator.LLMProvider
	tools  *orchestrator.ToolRegistry
	logger orchestrator.Logger

	systemPrompt      string
	loc               *time.Location
	promptTokenBudget int
	history           []orchestrator.Message
	mode              orchestrator.Mode
	ended             bool
}

// New starts a text conversation against the same LLM provider and tool
// registry a voice call would use.
func New(llm orchestrator.LLMProvider, tools *orchestrator.ToolRegistry, systemPrompt string, logger orchestrator.Logger) *Session {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Session{llm: llm, tools: tools, logger: logger, systemPrompt: systemPrompt, loc: time.UTC}
}

// toolDispatchResult pairs one tool call with its outcome, keeping
// execution order recoverable after the calls ran concurrently.
type toolDispatchResult struct {
	call   orchestrator.ToolCall
	result orchestrator.ToolResult
}

// Send appends the user's message, runs one full decision-engine turn
// (LLM completion, concurrent tool execution, user-facing text extraction,
// synthetic or narrated response), and returns the assistant's reply text.
// Terminate is true once a tool call (e.g. end_call) has ended the
// conversation; subsequent Sends return an error.
func (s *Session) Send(ctx context.Context, userText string) (reply string, terminate bool, err error) {
	if s.ended {
		return "", true, orchestrator.NewKindedError(orchestrator.ErrInvalidState, errConversationEnded)
	}

	s.history = append(s.history, orchestrator.Message{Role: orchestrator.RoleUser, Content: userText})

	pc := orchestrator.PromptContext{Now: time.Now(), Location: s.loc}
	prompt := orchestrator.BuildSystemPrompt(s.systemPrompt, s.mode, s.tools.Schemas(), pc)
	history := orchestrator.TrimToPromptBudget(s.history, s.promptTokenBudget)
	messages := append([]orchestrator.Message{{Role: orchestrator.RoleSystem, Content: prompt}}, history...)

	full, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return "", false, err
	}

	reply = orchestrator.StripToolCallText(full)
	calls := orchestrator.ParseToolCalls(full)
	if len(calls) == 0 {
		s.history = append(s.history, orchestrator.Message{Role: orchestrator.RoleAssistant, Content: full})
		return full, false, nil
	}

	lastResult, lastCall := s.dispatchToolsConcurrently(ctx, calls)

	if reply == "" {
		if text, ok := orchestrator.SyntheticResponse(lastCall.Name, lastResult); ok {
			reply = text
		} else {
			reply, err = s.llm.Complete(ctx, s.history)
			if err != nil {
				return "", false, err
			}
		}
	}

	s.history = append(s.history, orchestrator.Message{Role: orchestrator.RoleAssistant, Content: reply})
	if lastResult.Terminate() {
		s.ended = true
		return reply, true, nil
	}
	return reply, false, nil
}

// dispatchToolsConcurrently runs every tool call at once (awaiting all),
// then commits their results to history in the original call order so
// history stays deterministic even though execution wasn't.
func (s *Session) dispatchToolsConcurrently(ctx context.Context, calls []orchestrator.ToolCall) (lastResult orchestrator.ToolResult, lastCall orchestrator.ToolCall) {
	results := make([]toolDispatchResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call orchestrator.ToolCall) {
			defer wg.Done()
			result, callErr := s.tools.Call(ctx, call)
			if callErr != nil {
				s.logger.Warn("tool call failed", "tool", call.Name, "error", callErr)
				result = orchestrator.ToolResult{"error": callErr.Error()}
			}
			results[i] = toolDispatchResult{call: call, result: result}
		}(i, call)
	}
	wg.Wait()

	for _, r := range results {
		s.history = append(s.history, orchestrator.Message{
			Role: orchestrator.RoleTool, Content: orchestrator.FormatToolResultForHistory(r.call.Name, r.result), ToolName: r.call.Name,
		})
		if r.call.Name == "set_mode" && r.result.Status() == "success" {
			if m, ok := r.result["mode"].(string); ok {
				s.mode = orchestrator.Mode(m)
			}
		}
		lastResult, lastCall = r.result, r.call
	}
	return lastResult, lastCall
}

// History returns a defensive copy of the conversation so far.
func (s *Session) History() []orchestrator.Message {
	out := make([]orchestrator.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Ended() bool { return s.ended }
