// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration, loaded once at startup.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Provider selection, matching the env-switch idiom of selecting a
	// backend per external dependency rather than hard-wiring one.
	STTProvider string `envconfig:"STT_PROVIDER" default:"deepgram"`
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"groq"`
	TTSProvider string `envconfig:"TTS_PROVIDER" default:"lokutor"`

	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLang   string `envconfig:"DEEPGRAM_LANGUAGE" default:"es"`

	GroqAPIKey      string `envconfig:"GROQ_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `envconfig:"GOOGLE_API_KEY"`
	LLMModel        string `envconfig:"LLM_MODEL" default:"llama-3.3-70b-versatile"`

	LokutorAPIKey  string `envconfig:"LOKUTOR_API_KEY"`
	LokutorVoice   string `envconfig:"LOKUTOR_VOICE" default:"F1"`
	CartesiaAPIKey string `envconfig:"CARTESIA_API_KEY"`
	CartesiaVoice  string `envconfig:"CARTESIA_VOICE_ID"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`

	GoogleCredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`
	GoogleCalendarID      string `envconfig:"GOOGLE_CALENDAR_ID"`
	GoogleLeadSheetID     string `envconfig:"GOOGLE_LEAD_SHEET_ID"`
	SchedulingTimezone    string `envconfig:"SCHEDULING_TIMEZONE" default:"America/Cancun"`

	GreetingText string `envconfig:"GREETING_TEXT" default:"Hello, thanks for calling. How can I help you today?"`
	FarewellText string `envconfig:"FAREWELL_TEXT" default:"Thank you for calling. Goodbye!"`
	Timezone     string `envconfig:"TIMEZONE" default:"America/Cancun"`

	PromptTokenBudget int `envconfig:"PROMPT_TOKEN_BUDGET" default:"6000"`

	IngressSpillBufferBytes int           `envconfig:"INGRESS_SPILL_BUFFER_BYTES" default:"40960"`
	ToolWorkerPoolSize      int           `envconfig:"TOOL_WORKER_POOL_SIZE" default:"8"`
	ToolCallTimeout         time.Duration `envconfig:"TOOL_CALL_TIMEOUT" default:"10s"`

	PauseTimerShort time.Duration `envconfig:"PAUSE_TIMER_SHORT" default:"700ms"`
	PauseTimerPhone time.Duration `envconfig:"PAUSE_TIMER_PHONE" default:"1000ms"`
	PauseTimerCeil  time.Duration `envconfig:"PAUSE_TIMER_CEILING" default:"15s"`

	TTSFirstChunkDeadline time.Duration `envconfig:"TTS_FIRST_CHUNK_DEADLINE" default:"2s"`
	TTSStallTimeout       time.Duration `envconfig:"TTS_STALL_TIMEOUT" default:"3s"`
	TTSKeepaliveIdle      time.Duration `envconfig:"TTS_KEEPALIVE_IDLE" default:"10s"`
	FarewellHangupTimeout time.Duration `envconfig:"FAREWELL_HANGUP_TIMEOUT" default:"10s"`

	STTReconnectMaxAttempts int           `envconfig:"STT_RECONNECT_MAX_ATTEMPTS" default:"3"`
	STTReconnectBaseBackoff time.Duration `envconfig:"STT_RECONNECT_BASE_BACKOFF" default:"1s"`
	CircuitBreakerMaxFail   int           `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTime time.Duration `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30s"`

	MaxCallDuration    time.Duration `envconfig:"MAX_CALL_DURATION" default:"600s"`
	SilenceTimeout     time.Duration `envconfig:"SILENCE_TIMEOUT" default:"30s"`
	CallsPerDayCap     int           `envconfig:"CALLS_PER_DAY_CAP" default:"0"`
	HealthMonitorEvery time.Duration `envconfig:"HEALTH_MONITOR_INTERVAL" default:"5s"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads a .env file if present (ignored if missing) then populates a
// Config from the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
