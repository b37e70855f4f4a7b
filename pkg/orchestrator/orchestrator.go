package orchestrator

import "sync"

// Orchestrator holds the provider set and runtime configuration shared by
// every live Session's Controller. It is the wiring root: cmd/gateway
// constructs one Orchestrator at startup and hands it to TelephonyLink for
// each accepted call.
type Orchestrator struct {
	mu sync.RWMutex

	sttFactory func() STTProvider
	llm        LLMProvider
	tts        TTSProvider
	ttsFallback TTSFallbackProvider
	tools      *ToolRegistry
	supervisor *Supervisor
	logger     Logger

	cfg RuntimeConfig
}

// RuntimeConfig is the subset of internal/config.Config the orchestrator
// package needs, copied in at wiring time so this package has no import
// dependency on internal/config (kept an internal leaf package per the
// teacher's layering).
type RuntimeConfig struct {
	SystemPrompt            string
	GreetingText            string
	FarewellText            string
	PauseTimerShort         int64 // milliseconds
	PauseTimerPhone         int64
	PauseTimerCeiling       int64
	MinUtteranceChars       int
	TTSFirstChunkDeadlineMS int64
	TTSStallTimeoutMS       int64
	MaxCallDurationSec      int64
	SilenceTimeoutSec       int64
	Timezone                string // IANA zone for prompt date/time assembly
	PromptTokenBudget       int
	AmbientContext          string // optional weather/context snippet
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithToolRegistry(r *ToolRegistry) Option {
	return func(o *Orchestrator) { o.tools = r }
}

func WithSupervisor(s *Supervisor) Option {
	return func(o *Orchestrator) { o.supervisor = s }
}

func WithTTSFallback(f TTSFallbackProvider) Option {
	return func(o *Orchestrator) { o.ttsFallback = f }
}

// New wires an Orchestrator from a per-call STT factory (a fresh STT
// connection is required per call) plus the shared LLM/TTS providers and
// runtime configuration.
func New(sttFactory func() STTProvider, llm LLMProvider, tts TTSProvider, cfg RuntimeConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sttFactory: sttFactory,
		llm:        llm,
		tts:        tts,
		cfg:        cfg,
		logger:     &NoOpLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.supervisor == nil {
		o.supervisor = NewSupervisor(o.logger)
	}
	return o
}

// NewController starts a Controller (C9) for a freshly-accepted call. The
// returned Controller owns session lifecycle until Close is called.
func (o *Orchestrator) NewController(session *Session) *Controller {
	o.mu.RLock()
	cfg := o.cfg
	o.mu.RUnlock()

	stt := o.sttFactory()
	return newController(o, session, stt, o.llm, o.tts, o.ttsFallback, o.tools, o.supervisor, o.logger, cfg)
}

func (o *Orchestrator) Config() RuntimeConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

func (o *Orchestrator) UpdateConfig(cfg RuntimeConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
}

func (o *Orchestrator) Providers() map[string]string {
	names := map[string]string{"llm": o.llm.Name(), "tts": o.tts.Name()}
	if o.ttsFallback != nil {
		names["tts_fallback"] = o.ttsFallback.Name()
	}
	return names
}
