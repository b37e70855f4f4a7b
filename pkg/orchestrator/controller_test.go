package orchestrator

import (
	"context"
	"testing"
	"time"
)

type mockSTT struct {
	events chan STTEvent
	sent   [][]byte
}

func newMockSTT() *mockSTT {
	return &mockSTT{events: make(chan STTEvent, 16)}
}

func (m *mockSTT) Start(ctx context.Context) error        { return nil }
func (m *mockSTT) SendAudio(chunk []byte) error            { m.sent = append(m.sent, chunk); return nil }
func (m *mockSTT) Events() <-chan STTEvent                  { return m.events }
func (m *mockSTT) Stop() error                              { return nil }
func (m *mockSTT) Close() error                              { close(m.events); return nil }
func (m *mockSTT) Name() string                              { return "mock-stt" }

type mockLLM struct {
	response string
}

func (m *mockLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	return m.response, nil
}
func (m *mockLLM) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	onDelta(m.response)
	return m.response, nil
}
func (m *mockLLM) Name() string { return "mock-llm" }

type mockTTS struct{}

func (m *mockTTS) Speak(ctx context.Context, text string, onChunk func([]byte) error) error {
	return onChunk([]byte("audio:" + text))
}
func (m *mockTTS) Name() string { return "mock-tts" }

// fakeAudioSink is a test double for AudioSink: every media chunk is pushed
// to out, and clear/mark frames are recorded for assertions.
type fakeAudioSink struct {
	out   chan []byte
	clear int
	marks []string
}

func (f *fakeAudioSink) SendMedia(chunk []byte) error {
	f.out <- chunk
	return nil
}
func (f *fakeAudioSink) SendClear() error {
	f.clear++
	return nil
}
func (f *fakeAudioSink) SendMark(name string) error {
	f.marks = append(f.marks, name)
	return nil
}

func newTestController(t *testing.T, llmResponse string) (*Controller, *mockSTT, chan []byte) {
	t.Helper()
	stt := newMockSTT()
	llm := &mockLLM{response: llmResponse}
	tts := &mockTTS{}

	cfg := RuntimeConfig{
		SystemPrompt:      "You are a helpful assistant.",
		GreetingText:      "Hello, how can I help?",
		PauseTimerShort:   20,
		PauseTimerPhone:   40,
		PauseTimerCeiling: 1000,
		TTSFirstChunkDeadlineMS: 2000,
	}
	tools := NewToolRegistry(2, time.Second)
	tools.Register("end_call", func(ctx context.Context, args map[string]any) ToolResult {
		return ToolResult{"status": "success", "__terminate__": true}
	})
	orch := New(func() STTProvider { return stt }, llm, tts, cfg, WithToolRegistry(tools))
	session := NewSession("sess-1", "stream-1")
	ctrl := orch.NewController(session)

	out := make(chan []byte, 16)
	sink := &fakeAudioSink{out: out}
	if err := ctrl.Start(sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return ctrl, stt, out
}

func TestControllerSpeaksGreetingThenHandlesTurn(t *testing.T) {
	ctrl, stt, out := newTestController(t, "Sure, I can help with that.")
	defer ctrl.Close()

	stt.events <- STTEvent{Kind: STTEventTranscript, Text: "hi there", IsFinal: true}

	var chunks []string
	timeout := time.After(2 * time.Second)
	for len(chunks) < 2 {
		select {
		case c := <-out:
			chunks = append(chunks, string(c))
		case <-timeout:
			t.Fatal("timed out waiting for audio chunks")
		}
	}
	if chunks[0] != "audio:Hello, how can I help?" {
		t.Errorf("expected greeting as first chunk, got %q", chunks[0])
	}

	hist := ctrl.session.History()
	foundUser := false
	for _, m := range hist {
		if m.Role == RoleUser && m.Content == "hi there" {
			foundUser = true
		}
	}
	if !foundUser {
		t.Errorf("expected user transcript appended to history, got %+v", hist)
	}
}

func TestControllerEndCallOnTerminateToolResult(t *testing.T) {
	ctrl, stt, out := newTestController(t, `Goodbye! [end_call(reason="caller requested")]`)

	stt.events <- STTEvent{Kind: STTEventTranscript, Text: "please hang up", IsFinal: true}

	timeout := time.After(2 * time.Second)
drain:
	for {
		select {
		case <-out:
		case <-timeout:
			break drain
		}
		if ctrl.session.Ended() {
			break
		}
	}

	if !ctrl.session.Ended() {
		t.Fatal("expected session to be marked ended after end_call tool")
	}
	if ctrl.session.EndReason() != EndReasonAssistantRequest {
		t.Errorf("expected EndReasonAssistantRequest, got %v", ctrl.session.EndReason())
	}
}
