package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
	"github.com/rs/zerolog"
)

type stubSTT struct {
	events chan orchestrator.STTEvent
	sent   [][]byte
}

func (s *stubSTT) Start(ctx context.Context) error            { return nil }
func (s *stubSTT) SendAudio(chunk []byte) error                { s.sent = append(s.sent, chunk); return nil }
func (s *stubSTT) Events() <-chan orchestrator.STTEvent        { return s.events }
func (s *stubSTT) Stop() error                                 { return nil }
func (s *stubSTT) Close() error                                { close(s.events); return nil }
func (s *stubSTT) Name() string                                { return "stub-stt" }

type stubLLM struct{}

func (l *stubLLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	return "ok", nil
}
func (l *stubLLM) Stream(ctx context.Context, messages []orchestrator.Message, onDelta func(string)) (string, error) {
	onDelta("ok")
	return "ok", nil
}
func (l *stubLLM) Name() string { return "stub-llm" }

type stubTTS struct{}

func (t *stubTTS) Speak(ctx context.Context, text string, onChunk func([]byte) error) error {
	return onChunk([]byte("audio"))
}
func (t *stubTTS) Name() string { return "stub-tts" }

func newTestControllerFactory() ControllerFactory {
	cfg := orchestrator.RuntimeConfig{
		SystemPrompt:            "you are a test assistant",
		GreetingText:            "hello",
		PauseTimerShort:         20,
		PauseTimerPhone:         40,
		PauseTimerCeiling:       1000,
		TTSFirstChunkDeadlineMS: 500,
	}
	return func(streamID string) *orchestrator.Controller {
		orch := orchestrator.New(
			func() orchestrator.STTProvider { return &stubSTT{events: make(chan orchestrator.STTEvent, 8)} },
			&stubLLM{},
			&stubTTS{},
			cfg,
			orchestrator.WithToolRegistry(orchestrator.NewToolRegistry(1, time.Second)),
			orchestrator.WithSupervisor(orchestrator.NewSupervisor(nil)),
		)
		return orch.NewController(orchestrator.NewSession("", streamID))
	}
}

func TestHandlerUpgradesAndRunsStartMediaStop(t *testing.T) {
	log := zerolog.Nop()
	server := httptest.NewServer(Handler(newTestControllerFactory(), log))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	start := StreamMessage{Event: "start", Start: &StartFrame{CallSid: "CA1", StreamSid: "MZ1"}}
	if b, err := json.Marshal(start); err == nil {
		conn.WriteMessage(websocket.TextMessage, b)
	}

	media := StreamMessage{Event: "media", Media: &MediaFrame{Payload: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}}
	if b, err := json.Marshal(media); err == nil {
		conn.WriteMessage(websocket.TextMessage, b)
	}

	// Expect the greeting utterance bracketed by exactly one clear frame
	// before the first media chunk and one mark(end_of_tts) after the last.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var events []StreamMessage
	for len(events) < 3 {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("expected outbound frames, got error: %v", err)
		}
		var out StreamMessage
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("failed to parse outbound frame: %v", err)
		}
		events = append(events, out)
		if out.Event == "mark" {
			break
		}
	}

	if events[0].Event != "clear" {
		t.Errorf("expected first outbound event to be 'clear', got %q", events[0].Event)
	}
	last := events[len(events)-1]
	if last.Event != "mark" || last.Mark == nil || last.Mark.Name != "end_of_tts" {
		t.Errorf("expected final outbound event to be mark(end_of_tts), got %+v", last)
	}
	for _, ev := range events[1 : len(events)-1] {
		if ev.Event != "media" {
			t.Errorf("expected only media frames between clear and mark, got %q", ev.Event)
		}
	}

	stop := StreamMessage{Event: "stop"}
	if b, err := json.Marshal(stop); err == nil {
		conn.WriteMessage(websocket.TextMessage, b)
	}
}

func TestHandlerIgnoresMalformedFrame(t *testing.T) {
	log := zerolog.Nop()
	server := httptest.NewServer(Handler(newTestControllerFactory(), log))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))

	stop := StreamMessage{Event: "stop"}
	if b, err := json.Marshal(stop); err == nil {
		conn.WriteMessage(websocket.TextMessage, b)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	conn.ReadMessage()
}
