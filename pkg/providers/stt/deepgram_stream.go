// Package stt provides STTProvider implementations for orchestrator.Controller.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
)

// DeepgramStreamSTT talks Deepgram's raw streaming-transcription WebSocket
// protocol directly (no vendor SDK — see design notes on why the SDK was
// dropped) so outbound audio chunks and inbound transcript events can be
// threaded straight through orchestrator.STTProvider's shape.
type DeepgramStreamSTT struct {
	apiKey   string
	endpoint string
	sampleRate int

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan orchestrator.STTEvent
}

// NewDeepgramStreamSTT builds a fresh provider. A new instance is required
// per call since the underlying connection is stateful.
func NewDeepgramStreamSTT(apiKey string, sampleRate int) *DeepgramStreamSTT {
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	return &DeepgramStreamSTT{
		apiKey:     apiKey,
		endpoint:   "wss://api.deepgram.com/v1/listen",
		sampleRate: sampleRate,
		events:     make(chan orchestrator.STTEvent, 64),
	}
}

func (d *DeepgramStreamSTT) Name() string { return "deepgram-stream-stt" }

func (d *DeepgramStreamSTT) Events() <-chan orchestrator.STTEvent { return d.events }

// Start opens the websocket and begins a goroutine pumping transcript
// frames into Events(). A disconnect (clean or not) is surfaced as a single
// STTEventDisconnected and the read loop exits.
func (d *DeepgramStreamSTT) Start(ctx context.Context) error {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", fmt.Sprintf("%d", d.sampleRate))
	q.Set("channels", "1")
	q.Set("model", "nova-2")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("deepgram dial: %w", err)
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	go d.readLoop(ctx)
	return nil
}

func (d *DeepgramStreamSTT) readLoop(ctx context.Context) {
	for {
		_, data, err := d.conn.Read(ctx)
		if err != nil {
			d.emit(orchestrator.STTEvent{Kind: orchestrator.STTEventDisconnected, Err: err})
			return
		}

		var frame struct {
			Channel struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channel"`
			IsFinal bool `json:"is_final"`
			Type    string `json:"type"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type != "Results" || len(frame.Channel.Alternatives) == 0 {
			continue
		}
		text := frame.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}
		d.emit(orchestrator.STTEvent{Kind: orchestrator.STTEventTranscript, Text: text, IsFinal: frame.IsFinal})
	}
}

func (d *DeepgramStreamSTT) emit(ev orchestrator.STTEvent) {
	select {
	case d.events <- ev:
	default:
	}
}

// SendAudio writes one mu-law chunk as a binary websocket frame.
func (d *DeepgramStreamSTT) SendAudio(chunk []byte) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("deepgram stream not started")
	}
	return conn.Write(context.Background(), websocket.MessageBinary, chunk)
}

// Stop sends Deepgram's CloseStream control message so the server flushes
// any final transcript before the connection closes.
func (d *DeepgramStreamSTT) Stop() error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
}

func (d *DeepgramStreamSTT) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}
