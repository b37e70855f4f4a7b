package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lokutor-ai/callgateway/internal/audio"
)

// Controller is the ConversationController (C9): the single state machine
// that owns one Session's turn-taking. It consumes STT events, drives the
// DecisionEngine (LLM + tool calls), and drives TTS playback, while
// enforcing the is_speaking -> suppress_stt invariant and handling
// barge-in (discard-only; STT events are dropped whenever suppress_stt is
// set, never used to interrupt an in-flight turn), reconnects, and
// call-ending.
//
// The STT event loop started by Start feeds the transcript buffer; each
// turn then runs on the buffer's pause-timer goroutine when the timer
// fires. Everything else reaches the Controller through its exported,
// mutex-guarded methods.
type Controller struct {
	orch       *Orchestrator
	session    *Session
	stt        STTProvider
	llm        LLMProvider
	tts        TTSProvider
	ttsFallback TTSFallbackProvider
	tools      *ToolRegistry
	supervisor *Supervisor
	logger     Logger
	cfg        RuntimeConfig
	loc        *time.Location

	ctx    context.Context
	cancel context.CancelFunc

	ingress *audio.SpillBuffer
	xscript *TranscriptBuffer

	sink AudioSink

	// speakMu serializes speak calls one utterance at a time; speakGuard
	// lets a duplicate-text speak be dropped without ever blocking on
	// speakMu, per the per-utterance-serialization + de-dup contract.
	speakMu    sync.Mutex
	speakGuard struct {
		mu   sync.Mutex
		busy bool
		text string
	}

	closeOnce sync.Once
}

func newController(
	o *Orchestrator,
	session *Session,
	stt STTProvider,
	llm LLMProvider,
	tts TTSProvider,
	ttsFallback TTSFallbackProvider,
	tools *ToolRegistry,
	supervisor *Supervisor,
	logger Logger,
	cfg RuntimeConfig,
) *Controller {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	c := &Controller{
		orch:       o,
		session:    session,
		stt:        stt,
		llm:        llm,
		tts:        tts,
		ttsFallback: ttsFallback,
		tools:      tools,
		supervisor: supervisor,
		logger:     logger,
		cfg:        cfg,
		loc:        loc,
		ctx:        ctx,
		cancel:     cancel,
		ingress:    audio.NewSpillBuffer(40960),
	}
	c.xscript = NewTranscriptBuffer(
		time.Duration(cfg.PauseTimerShort)*time.Millisecond,
		time.Duration(cfg.PauseTimerPhone)*time.Millisecond,
		time.Duration(cfg.PauseTimerCeiling)*time.Millisecond,
		c.handleFinalTranscript,
	)
	return c
}

// Start connects the STT provider, begins the session event loop, and
// speaks the configured greeting. sink is AudioEgress (C5): every
// synthesized mu-law chunk, plus the clear/mark frames bracketing each
// utterance, are written through it to the telephony link.
func (c *Controller) Start(sink AudioSink) error {
	c.sink = sink

	if err := c.stt.Start(c.ctx); err != nil {
		return NewKindedError(ErrFatal, fmt.Errorf("starting stt: %w", err))
	}
	c.supervisor.Health(ServiceSTT).setStatus(StatusConnected)

	if spilled := c.ingress.Drain(); len(spilled) > 0 {
		_ = c.stt.SendAudio(spilled)
	}

	go c.runEventLoop()

	if strings.TrimSpace(c.cfg.SystemPrompt) != "" {
		c.session.AppendMessage(Message{Role: RoleSystem, Content: c.cfg.SystemPrompt})
	}
	if c.cfg.GreetingText != "" {
		c.speak(c.ctx, c.cfg.GreetingText)
	}
	return nil
}

// WriteAudio forwards one inbound telephony audio chunk to STT, spilling
// into the bounded ingress buffer (dropping newest on overflow) if the STT
// link is not currently connected. While suppress_stt is set — the bot is
// speaking or about to speak — inbound audio is dropped outright rather
// than spilled or forwarded, so the caller's mic never feeds the bot's own
// playback back into the transcript.
func (c *Controller) WriteAudio(chunk []byte) error {
	c.session.Audio.TouchAudioActivity()

	if c.session.Audio.SuppressSTT() {
		return nil
	}

	if c.supervisor.Health(ServiceSTT).Snapshot().Status != StatusConnected {
		c.ingress.Write(chunk)
		return nil
	}
	return c.stt.SendAudio(chunk)
}

func (c *Controller) runEventLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, open := <-c.stt.Events():
			if !open {
				return
			}
			c.handleSTTEvent(ev)
		}
	}
}

func (c *Controller) handleSTTEvent(ev STTEvent) {
	switch ev.Kind {
	case STTEventDisconnected:
		c.handleSTTDisconnect(ev.Err)
	case STTEventTranscript:
		// Barge-in suppression is discard-only: while the bot is speaking
		// (or about to) the caller's transcript is simply dropped, never
		// used to interrupt an in-flight turn or utterance.
		if c.session.Audio.SuppressSTT() {
			return
		}
		if strings.TrimSpace(ev.Text) == "" {
			return
		}
		mode := c.session.GetMode()
		if ev.IsFinal {
			c.xscript.AddFinal(ev.Text, mode)
		} else {
			c.xscript.AddPartial(ev.Text, mode)
		}
	}
}

func (c *Controller) handleSTTDisconnect(cause error) {
	health := c.supervisor.Health(ServiceSTT)
	health.setStatus(StatusDisconnected)
	c.logger.Warn("stt link lost", "sessionID", c.session.ID(), "error", cause)

	err := c.supervisor.Reconnect(c.ctx, ServiceSTT, func(ctx context.Context) error {
		return c.stt.Start(ctx)
	})
	if err != nil {
		c.logger.Error("stt reconnect exhausted", "sessionID", c.session.ID(), "error", err)
		c.session.MarkEnded(EndReasonSTTLost)
		c.cancel()
	}
}

// handleFinalTranscript runs one full user turn: append to history, run
// the decision engine, execute any tool calls, speak the result. It raises
// suppress_stt eagerly, before the LLM is even called (the "pause-then-
// speak" pre-warm from Listening -> Thinking), so barge-in suppression
// covers the whole turn rather than just the eventual speak.
func (c *Controller) handleFinalTranscript(text string) {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return
	}

	c.session.Audio.BeginSuppression()

	c.session.AppendMessage(Message{Role: RoleUser, Content: text})

	reply, term := c.runDecisionEngine(c.ctx)
	if reply != "" {
		c.session.AppendMessage(Message{Role: RoleAssistant, Content: reply})
		c.speak(c.ctx, reply)
	} else {
		c.session.Audio.EndSpeaking()
	}
	if term {
		c.endCall(EndReasonAssistantRequest)
	}
}

// toolDispatchResult pairs one tool call with its outcome, keeping
// execution order recoverable after the calls ran concurrently.
type toolDispatchResult struct {
	call   ToolCall
	result ToolResult
}

// runDecisionEngine is the DecisionEngine (C7): stream the LLM completion,
// parse any tool calls out of the finished text, execute them concurrently,
// and fold the user-facing text (stripped of tool-call syntax), a synthetic
// template, or an LLM-narrated response back into what gets spoken.
func (c *Controller) runDecisionEngine(ctx context.Context) (reply string, terminate bool) {
	pc := PromptContext{Now: time.Now(), Location: c.loc, AmbientContext: c.cfg.AmbientContext}
	prompt := BuildSystemPrompt(c.cfg.SystemPrompt, c.session.GetMode(), c.tools.Schemas(), pc)
	history := TrimToPromptBudget(c.session.History(), c.cfg.PromptTokenBudget)
	messages := append([]Message{{Role: RoleSystem, Content: prompt}}, history...)

	var sb strings.Builder
	_, err := c.llm.Stream(ctx, messages, func(delta string) {
		sb.WriteString(delta)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		c.logger.Error("llm generation failed", "sessionID", c.session.ID(), "error", err)
		return "I'm having trouble right now. Could you say that again?", false
	}

	full := sb.String()
	userText := StripToolCallText(full)
	calls := ParseToolCalls(full)
	if len(calls) == 0 {
		return full, false
	}

	lastResult, lastCall := c.dispatchToolsConcurrently(ctx, calls)

	if userText != "" {
		return userText, lastResult.Terminate()
	}
	if text, ok := SyntheticResponse(lastCall.Name, lastResult); ok {
		return text, lastResult.Terminate()
	}
	return c.narrateToolResult(ctx), lastResult.Terminate()
}

// dispatchToolsConcurrently runs every tool call at once (awaiting all),
// then commits their results to history in the original call order so
// history stays deterministic even though execution wasn't.
func (c *Controller) dispatchToolsConcurrently(ctx context.Context, calls []ToolCall) (lastResult ToolResult, lastCall ToolCall) {
	results := make([]toolDispatchResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			result, err := c.tools.Call(ctx, call)
			if err != nil {
				c.logger.Warn("tool call failed", "sessionID", c.session.ID(), "tool", call.Name, "error", err)
				result = ToolResult{"error": err.Error()}
			}
			results[i] = toolDispatchResult{call: call, result: result}
		}(i, call)
	}
	wg.Wait()

	for _, r := range results {
		c.session.AppendMessage(Message{Role: RoleTool, Content: FormatToolResultForHistory(r.call.Name, r.result), ToolName: r.call.Name})
		if r.call.Name == "set_mode" && r.result.Status() == "success" {
			if m, ok := r.result["mode"].(string); ok {
				c.session.SetMode(Mode(m))
			}
		}
		lastResult, lastCall = r.result, r.call
	}
	return lastResult, lastCall
}

// narrateToolResult asks the LLM for a second turn once the tool result is
// in history, for tools with no synthetic template and no accompanying
// user-facing text of their own.
func (c *Controller) narrateToolResult(ctx context.Context) string {
	pc := PromptContext{Now: time.Now(), Location: c.loc, AmbientContext: c.cfg.AmbientContext}
	prompt := BuildSystemPrompt(c.cfg.SystemPrompt, c.session.GetMode(), c.tools.Schemas(), pc)
	history := TrimToPromptBudget(c.session.History(), c.cfg.PromptTokenBudget)
	messages := append([]Message{{Role: RoleSystem, Content: prompt}}, history...)

	var sb strings.Builder
	_, err := c.llm.Stream(ctx, messages, func(delta string) { sb.WriteString(delta) })
	if err != nil {
		return ""
	}
	return sb.String()
}

// speak synthesizes text and streams mu-law chunks through the AudioSink,
// bracketing the utterance with the required clear/mark frames and
// enforcing the is_speaking -> suppress_stt invariant for its duration.
// Overlapping speaks are serialized by speakMu; a call whose text exactly
// matches the in-flight utterance is dropped outright rather than queued.
func (c *Controller) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	c.speakGuard.mu.Lock()
	if c.speakGuard.busy && c.speakGuard.text == text {
		c.speakGuard.mu.Unlock()
		return
	}
	c.speakGuard.busy = true
	c.speakGuard.text = text
	c.speakGuard.mu.Unlock()
	defer func() {
		c.speakGuard.mu.Lock()
		c.speakGuard.busy = false
		c.speakGuard.text = ""
		c.speakGuard.mu.Unlock()
	}()

	c.speakMu.Lock()
	defer c.speakMu.Unlock()

	c.session.Audio.BeginSuppression()
	c.session.Audio.BeginSpeaking()
	defer c.session.Audio.EndSpeaking()

	_ = c.sink.SendClear()
	defer func() { _ = c.sink.SendMark("end_of_tts") }()

	deadline := time.Duration(c.cfg.TTSFirstChunkDeadlineMS) * time.Millisecond
	if deadline <= 0 {
		deadline = 2 * time.Second
	}

	firstChunk := make(chan struct{}, 1)
	onChunk := func(chunk []byte) error {
		select {
		case firstChunk <- struct{}{}:
		default:
		}
		c.session.Audio.TouchChunkEmitted()
		return c.sink.SendMedia(chunk)
	}

	speakCtx, speakCancel := context.WithCancel(ctx)
	defer speakCancel()

	done := make(chan error, 1)
	go func() { done <- c.tts.Speak(speakCtx, text, onChunk) }()

	select {
	case <-firstChunk:
		if err := <-done; err != nil && speakCtx.Err() == nil {
			c.logger.Warn("tts stream ended with error", "sessionID", c.session.ID(), "error", err)
		}
		return
	case err := <-done:
		if err == nil {
			return
		}
	case <-time.After(deadline):
	case <-ctx.Done():
		return
	}

	// Streaming path stalled or errored before any audio arrived: fall back
	// to batch synthesis if a fallback provider is configured.
	speakCancel()
	if c.ttsFallback == nil {
		return
	}
	audioBytes, err := c.ttsFallback.SynthesizeBatch(ctx, text)
	if err != nil {
		c.logger.Error("tts fallback failed", "sessionID", c.session.ID(), "error", err)
		return
	}
	_ = c.sink.SendMedia(audioBytes)
	c.session.Audio.TouchChunkEmitted()
}

func (c *Controller) endCall(reason EndReason) {
	if c.cfg.FarewellText != "" && reason == EndReasonAssistantRequest {
		c.speak(c.ctx, c.cfg.FarewellText)
	}
	c.session.MarkEnded(reason)
	c.Close()
}

// Close tears down the STT link, aborts any in-flight TTS speak, and stops
// the event loop. Safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.session.MarkEnded(EndReasonCallerHangup)
		c.cancel()
		if tts, ok := c.tts.(Abortable); ok {
			_ = tts.Abort()
		}
		_ = c.stt.Close()
	})
}
