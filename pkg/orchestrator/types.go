// Package orchestrator implements the call-session orchestrator: the
// concurrent state machine that owns one live call's audio, transcript,
// LLM turn, and TTS playback (components C1-C10).
package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Logger is the narrow logging capability orchestrator components take,
// kept independent of any concrete logging library so tests can pass a
// no-op implementation.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// Role identifies the speaker of a history Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in Session.history. ToolName is set only when
// Role == RoleTool.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"-"`
}

// Mode nudges prompt assembly toward a particular task the caller is
// mid-way through. It changes only when a set_mode tool call succeeds; no
// heuristic sets it from the conversation text.
type Mode string

const (
	ModeNone        Mode = "none"
	ModeCaptureLead Mode = "capture_lead"
	ModeCreateAppt  Mode = "create_appt"
	ModeEditAppt    Mode = "edit_appt"
	ModeDeleteAppt  Mode = "delete_appt"
)

// EndReason records why a Session was closed.
type EndReason string

const (
	EndReasonNone             EndReason = ""
	EndReasonAssistantRequest EndReason = "assistant_request"
	EndReasonCallerHangup     EndReason = "caller_hangup"
	EndReasonSilenceTimeout   EndReason = "silence_timeout"
	EndReasonMaxDuration      EndReason = "max_duration"
	EndReasonSTTLost          EndReason = "stt_lost"
	EndReasonFatal            EndReason = "fatal"
)

// AudioState is owned exclusively by the Session; only the controller task
// (C9) writes it, per the ownership rule in the data model. Invariant:
// IsSpeaking() implies SuppressSTT().
type AudioState struct {
	mu                 sync.RWMutex
	isSpeaking         bool
	suppressSTT        bool
	ttsInProgress      bool
	lastAudioActivity  time.Time
	lastChunkEmittedAt time.Time
}

func newAudioState() *AudioState {
	return &AudioState{lastAudioActivity: time.Now()}
}

// BeginSuppression flips suppress_stt ahead of the LLM turn starting (the
// "pause-then-speak" pre-warm), without yet claiming IsSpeaking.
func (a *AudioState) BeginSuppression() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suppressSTT = true
}

// BeginSpeaking sets isSpeaking, suppressSTT, and ttsInProgress together,
// preserving the invariant atomically.
func (a *AudioState) BeginSpeaking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.isSpeaking = true
	a.suppressSTT = true
	a.ttsInProgress = true
}

// EndSpeaking clears isSpeaking, suppressSTT, and ttsInProgress together,
// returning the Session to Listening.
func (a *AudioState) EndSpeaking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.isSpeaking = false
	a.suppressSTT = false
	a.ttsInProgress = false
}

func (a *AudioState) IsSpeaking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isSpeaking
}

func (a *AudioState) SuppressSTT() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.suppressSTT
}

func (a *AudioState) TTSInProgress() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ttsInProgress
}

func (a *AudioState) TouchAudioActivity() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAudioActivity = time.Now()
}

func (a *AudioState) LastAudioActivity() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastAudioActivity
}

func (a *AudioState) TouchChunkEmitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastChunkEmittedAt = time.Now()
}

// ToolCall is produced by the tool-call parser (DecisionEngine, step 3).
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ToolResult is the structured value a tool executor returns. It is a
// plain map (not a struct) because tools are opaque black boxes whose
// shape the core never assumes beyond the reserved status/error/
// __terminate__ keys, mirroring the source's dict-based tool results.
type ToolResult map[string]any

// Terminate reports whether this result carries the reserved sentinel
// meaning "close the call after the current utterance".
func (r ToolResult) Terminate() bool {
	v, _ := r["__terminate__"].(bool)
	return v
}

// Status returns the key used to select a synthetic-response template:
// the explicit status if present, "error" if an error key is present,
// otherwise "default".
func (r ToolResult) Status() string {
	if s, ok := r["status"].(string); ok && s != "" {
		return s
	}
	if _, hasErr := r["error"]; hasErr {
		return "error"
	}
	return "default"
}

// ServiceName identifies an external dependency IntegrationSupervisor (C10)
// tracks health for.
type ServiceName string

const (
	ServiceSTT ServiceName = "stt"
	ServiceTTS ServiceName = "tts"
)

// ServiceStatus is one state in a ServiceHealth's lifecycle.
type ServiceStatus string

const (
	StatusDisconnected ServiceStatus = "disconnected"
	StatusConnecting   ServiceStatus = "connecting"
	StatusConnected    ServiceStatus = "connected"
	StatusReconnecting ServiceStatus = "reconnecting"
	StatusFailed       ServiceStatus = "failed"
)

// ServiceHealth tracks one external dependency's connection lifecycle.
// Mutated only by IntegrationSupervisor; read by the admin surface through
// a read-only Snapshot.
type ServiceHealth struct {
	mu                sync.RWMutex
	status            ServiceStatus
	lastConnected     time.Time
	lastError         error
	reconnectAttempts int
	totalReconnects   int
}

func NewServiceHealth() *ServiceHealth {
	return &ServiceHealth{status: StatusDisconnected}
}

type ServiceHealthSnapshot struct {
	Status            ServiceStatus
	LastConnected     time.Time
	LastError         string
	ReconnectAttempts int
	TotalReconnects   int
}

func (h *ServiceHealth) Snapshot() ServiceHealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := ServiceHealthSnapshot{
		Status:            h.status,
		LastConnected:     h.lastConnected,
		ReconnectAttempts: h.reconnectAttempts,
		TotalReconnects:   h.totalReconnects,
	}
	if h.lastError != nil {
		snap.LastError = h.lastError.Error()
	}
	return snap
}

func (h *ServiceHealth) setStatus(s ServiceStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
	if s == StatusConnected {
		h.lastConnected = time.Now()
		h.reconnectAttempts = 0
	}
}

func (h *ServiceHealth) recordError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = err
}

func (h *ServiceHealth) recordReconnectAttempt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reconnectAttempts++
}

func (h *ServiceHealth) recordReconnectSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalReconnects++
	h.reconnectAttempts = 0
}

// --- Provider contracts (C3/C4/C7 external collaborators) ---

// STTEventKind distinguishes a transcript delivery from a disconnect
// notification on the same event stream.
type STTEventKind int

const (
	STTEventTranscript STTEventKind = iota
	STTEventDisconnected
)

type STTEvent struct {
	Kind    STTEventKind
	Text    string
	IsFinal bool
	Err     error
}

// STTProvider is the streaming speech-to-text contract (C3).
type STTProvider interface {
	Start(ctx context.Context) error
	SendAudio(chunk []byte) error
	Events() <-chan STTEvent
	Stop() error
	Close() error
	Name() string
}

// LLMProvider is the streaming (and batch, for the text-chat path)
// completion contract driving DecisionEngine (C7).
type LLMProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error)
	Name() string
}

// TTSProvider is the streaming synthesis contract (C4's primary path).
// Speak blocks until the stream ends or ctx is cancelled; onChunk is
// invoked once per mu-law 8kHz chunk in order.
type TTSProvider interface {
	Speak(ctx context.Context, text string, onChunk func([]byte) error) error
	Name() string
}

// Abortable is implemented by TTS providers whose in-flight Speak can be
// cancelled out-of-band (closing the underlying stream) rather than
// relying solely on context cancellation.
type Abortable interface {
	Abort() error
}

// TTSFallbackProvider is C4's HTTP batch-synthesis fallback, used when the
// streaming path stalls or fails to deliver a first chunk in time.
type TTSFallbackProvider interface {
	SynthesizeBatch(ctx context.Context, text string) ([]byte, error)
	Name() string
}

// ToolExecutor is the signature every ToolRegistry (C8) entry implements.
type ToolExecutor func(ctx context.Context, args map[string]any) ToolResult

// AudioSink is AudioEgress (C5): the transport that a Controller streams
// one call's synthesized audio through. SendClear flushes the transport's
// own playback buffer and must be sent before the first chunk of any new
// utterance; SendMark signals end-of-utterance (name is always
// "end_of_tts" on the current call path, but the transport doesn't assume
// that).
type AudioSink interface {
	SendMedia(chunk []byte) error
	SendClear() error
	SendMark(name string) error
}
