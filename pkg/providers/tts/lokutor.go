// Package tts provides TTSProvider/TTSFallbackProvider implementations for
// orchestrator.Controller.
package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// LokutorTTS streams synthesis over a persistent websocket connection — the
// primary TTS path (C4). One instance is shared across calls; Speak guards
// the connection with a mutex so only one utterance is in flight at a time,
// matching the protocol's single-request-per-connection design.
type LokutorTTS struct {
	apiKey string
	host   string
	scheme string
	voice  string

	speakMu  sync.Mutex
	mu       sync.Mutex
	conn     *websocket.Conn
	speaking bool
	abort    context.CancelFunc
}

func NewLokutorTTS(apiKey, voice string) *LokutorTTS {
	if voice == "" {
		voice = "F1"
	}
	return &LokutorTTS{apiKey: apiKey, host: "api.lokutor.com", scheme: "wss", voice: voice}
}

func (t *LokutorTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	scheme := t.scheme
	if scheme == "" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lokutor: %w", err)
	}
	t.conn = conn
	return conn, nil
}

// Speak sends one synthesis request and streams mu-law chunks to onChunk in
// order until the server signals end-of-stream ("EOS") or ctx is cancelled.
func (t *LokutorTTS) Speak(ctx context.Context, text string, onChunk func([]byte) error) error {
	t.speakMu.Lock()
	defer t.speakMu.Unlock()

	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	abortCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.speaking = true
	t.abort = cancel
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.speaking = false
		t.abort = nil
		t.mu.Unlock()
		cancel()
	}()

	req := map[string]interface{}{
		"text":    text,
		"voice":   t.voice,
		"speed":   1.05,
		"steps":   5,
		"version": "versa-1.0",
	}

	if err := wsjson.Write(abortCtx, conn, req); err != nil {
		t.invalidateConn()
		return fmt.Errorf("failed to send synthesis request: %w", err)
	}

	for {
		messageType, payload, err := conn.Read(abortCtx)
		if err != nil {
			t.invalidateConn()
			if abortCtx.Err() != nil && ctx.Err() == nil {
				// Aborted mid-utterance via Abort, not a real transport error.
				return nil
			}
			return fmt.Errorf("failed to read from lokutor: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("lokutor error: %s", msg)
			}
		}
	}
}

// Abort cancels the in-flight Speak call, if any, rather than waiting for
// the connection-level context to unwind. The Controller calls it on call
// teardown.
func (t *LokutorTTS) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.speaking && t.abort != nil {
		t.abort()
	}
	return nil
}

func (t *LokutorTTS) invalidateConn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close(websocket.StatusAbnormalClosure, "")
		t.conn = nil
	}
}

func (t *LokutorTTS) Name() string {
	return "lokutor"
}

func (t *LokutorTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
