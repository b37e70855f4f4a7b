// Command gateway is the call-session-orchestrator's entrypoint: it loads
// configuration, wires the selected STT/LLM/TTS providers and scheduling
// tools into one Orchestrator, and serves the telephony WebSocket endpoint
// plus liveness/readiness/metrics for the process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lokutor-ai/callgateway/internal/config"
	"github.com/lokutor-ai/callgateway/internal/observability"
	"github.com/lokutor-ai/callgateway/internal/telephony"
	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
	llmProvider "github.com/lokutor-ai/callgateway/pkg/providers/llm"
	sttProvider "github.com/lokutor-ai/callgateway/pkg/providers/stt"
	ttsProvider "github.com/lokutor-ai/callgateway/pkg/providers/tts"
	"github.com/lokutor-ai/callgateway/pkg/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	log := observability.Logger()

	llm := selectLLM(cfg)
	tts := selectTTS(cfg)
	sttFactory := selectSTTFactory(cfg)

	runtimeCfg := orchestrator.RuntimeConfig{
		SystemPrompt:            "You are a helpful, concise front-desk voice assistant. Use short sentences suitable for speech.",
		GreetingText:            cfg.GreetingText,
		FarewellText:            cfg.FarewellText,
		PauseTimerShort:         cfg.PauseTimerShort.Milliseconds(),
		PauseTimerPhone:         cfg.PauseTimerPhone.Milliseconds(),
		PauseTimerCeiling:       cfg.PauseTimerCeil.Milliseconds(),
		TTSFirstChunkDeadlineMS: cfg.TTSFirstChunkDeadline.Milliseconds(),
		TTSStallTimeoutMS:       cfg.TTSStallTimeout.Milliseconds(),
		MaxCallDurationSec:      int64(cfg.MaxCallDuration.Seconds()),
		SilenceTimeoutSec:       int64(cfg.SilenceTimeout.Seconds()),
		Timezone:                cfg.Timezone,
		PromptTokenBudget:       cfg.PromptTokenBudget,
	}

	registry := orchestrator.NewToolRegistry(cfg.ToolWorkerPoolSize, cfg.ToolCallTimeout)
	wireTools(cfg, registry, log)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(observability.NewCallLogger(log)),
		orchestrator.WithToolRegistry(registry),
		orchestrator.WithSupervisor(orchestrator.NewSupervisor(observability.NewCallLogger(log))),
	}
	if fallback := selectTTSFallback(cfg); fallback != nil {
		opts = append(opts, orchestrator.WithTTSFallback(fallback))
	}

	orch := orchestrator.New(sttFactory, llm, tts, runtimeCfg, opts...)

	mux := http.NewServeMux()
	mux.Handle("/stream", telephony.Handler(func(streamID string) *orchestrator.Controller {
		return orch.NewController(orchestrator.NewSession("", streamID))
	}, log))
	mux.Handle("/healthz", observability.LivenessHandler())
	mux.Handle("/readyz", observability.ReadinessHandler(map[string]observability.DependencyCheck{
		"llm": func(ctx context.Context) (bool, error) { return true, nil },
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func selectLLM(cfg *config.Config) orchestrator.LLMProvider {
	switch cfg.LLMProvider {
	case "openai":
		return llmProvider.NewOpenAILLM(cfg.OpenAIAPIKey, cfg.LLMModel)
	case "anthropic":
		return llmProvider.NewAnthropicLLM(cfg.AnthropicAPIKey, cfg.LLMModel)
	case "google":
		return llmProvider.NewGoogleLLM(cfg.GoogleAPIKey, cfg.LLMModel)
	case "groq":
		fallthrough
	default:
		return llmProvider.NewGroqLLM(cfg.GroqAPIKey, cfg.LLMModel)
	}
}

func selectTTS(cfg *config.Config) orchestrator.TTSProvider {
	return ttsProvider.NewLokutorTTS(cfg.LokutorAPIKey, cfg.LokutorVoice)
}

func selectTTSFallback(cfg *config.Config) orchestrator.TTSFallbackProvider {
	if cfg.CartesiaAPIKey == "" {
		return nil
	}
	return ttsProvider.NewCartesiaFallback(cfg.CartesiaAPIKey, cfg.CartesiaVoice, "")
}

func selectSTTFactory(cfg *config.Config) func() orchestrator.STTProvider {
	return func() orchestrator.STTProvider {
		return sttProvider.NewDeepgramStreamSTT(cfg.DeepgramAPIKey, 8000)
	}
}

// wireTools registers the scheduling and lead-capture tools against live
// Google Calendar/Sheets backends when credentials are configured. Without
// credentials, the LLM still sees set_mode/end_call but no scheduling
// tools, so a misconfigured deployment degrades to conversation-only
// rather than failing to start.
func wireTools(cfg *config.Config, registry *orchestrator.ToolRegistry, log zerolog.Logger) {
	registry.Register("set_mode", toolsSetModeFallback())
	registry.Register("end_call", toolsEndCallFallback())

	if cfg.GoogleCredentialsJSON == "" {
		log.Warn().Msg("GOOGLE_CREDENTIALS_JSON not set, scheduling and lead-capture tools disabled")
		return
	}

	loc, err := time.LoadLocation(cfg.SchedulingTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.SchedulingTimezone).Msg("invalid scheduling timezone, defaulting to UTC")
		loc = time.UTC
	}

	ctx := context.Background()
	cal, err := tools.NewGoogleCalendarService(ctx, cfg.GoogleCredentialsJSON, cfg.GoogleCalendarID)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize google calendar, scheduling tools disabled")
		return
	}

	var leads tools.LeadSink
	if cfg.GoogleLeadSheetID != "" {
		leads, err = tools.NewGoogleSheetsLeadSink(ctx, cfg.GoogleCredentialsJSON, cfg.GoogleLeadSheetID, loc)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize google sheets, lead capture disabled")
		}
	}

	tools.RegisterAll(registry, tools.Dependencies{Calendar: cal, Leads: leads, Location: loc})
}

func toolsSetModeFallback() orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		return orchestrator.ToolResult{"status": "error", "error": "scheduling tools not configured"}
	}
}

func toolsEndCallFallback() orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		return orchestrator.ToolResult{"status": "success", "__terminate__": true}
	}
}
