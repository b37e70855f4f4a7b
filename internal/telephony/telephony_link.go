// Package telephony implements the TelephonyLink (C1): the WebSocket
// endpoint that speaks a Twilio-style Media Streams protocol, demuxes its
// connected/start/media/stop event envelope, and wires inbound/outbound
// audio straight into one orchestrator.Controller per call.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// StreamMessage is one frame of a Twilio-style Media Streams envelope.
type StreamMessage struct {
	Event     string      `json:"event"`
	StreamSid string      `json:"streamSid,omitempty"`
	Media     *MediaFrame `json:"media,omitempty"`
	Start     *StartFrame `json:"start,omitempty"`
	Mark      *MarkFrame  `json:"mark,omitempty"`
}

type MediaFrame struct {
	Payload string `json:"payload"`
}

type MarkFrame struct {
	Name string `json:"name"`
}

type StartFrame struct {
	CallSid          string                 `json:"callSid"`
	StreamSid        string                 `json:"streamSid"`
	CustomParameters map[string]interface{} `json:"customParameters,omitempty"`
}

// ControllerFactory builds one Controller per call, given the call's
// externally-assigned stream id. The caller wires in whichever providers
// the active configuration selects.
type ControllerFactory func(streamID string) *orchestrator.Controller

// Handler upgrades one HTTP connection to a Media Streams WebSocket and
// drives a Controller for the lifetime of the call.
func Handler(newController ControllerFactory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("telephony: websocket upgrade failed")
			return
		}
		link := &callLink{conn: conn, log: log, newController: newController}
		link.run()
	}
}

// callLink owns one call's websocket connection and the Controller driving
// it. It has no state machine of its own beyond event demuxing — all
// turn-taking state lives in the Controller.
type callLink struct {
	conn          *websocket.Conn
	log           zerolog.Logger
	newController ControllerFactory
	ctrl          *orchestrator.Controller
	streamSid     string
}

func (l *callLink) run() {
	defer l.conn.Close()
	defer func() {
		if l.ctrl != nil {
			l.ctrl.Close()
		}
	}()

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			l.log.Info().Err(err).Str("stream_sid", l.streamSid).Msg("telephony: connection closed")
			return
		}

		var msg StreamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			l.log.Warn().Err(err).Msg("telephony: malformed frame")
			continue
		}

		switch msg.Event {
		case "connected":
			// No session state yet; Twilio sends this before "start".
		case "start":
			l.handleStart(&msg)
		case "media":
			l.handleMedia(&msg)
		case "stop":
			l.log.Info().Str("stream_sid", l.streamSid).Msg("telephony: stream stopped")
			return
		default:
			l.log.Debug().Str("event", msg.Event).Msg("telephony: unrecognized event")
		}
	}
}

func (l *callLink) handleStart(msg *StreamMessage) {
	if msg.Start == nil {
		return
	}
	l.streamSid = msg.Start.StreamSid
	l.ctrl = l.newController(l.streamSid)

	if err := l.ctrl.Start(l); err != nil {
		l.log.Error().Err(err).Str("stream_sid", l.streamSid).Msg("telephony: controller failed to start")
	}
}

func (l *callLink) handleMedia(msg *StreamMessage) {
	if msg.Media == nil || l.ctrl == nil {
		return
	}
	chunk, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
	if err != nil {
		l.log.Warn().Err(err).Msg("telephony: bad base64 media payload")
		return
	}
	if err := l.ctrl.WriteAudio(chunk); err != nil {
		l.log.Warn().Err(err).Msg("telephony: failed to forward inbound audio")
	}
}

// callLink implements orchestrator.AudioSink: AudioEgress (C5)'s entire job
// on this transport is relaying clear/media/mark frames over the Media
// Streams connection in the order the Controller emits them.
var _ orchestrator.AudioSink = (*callLink)(nil)

// SendMedia writes one mu-law chunk back out over the Media Streams
// connection.
func (l *callLink) SendMedia(chunk []byte) error {
	frame := map[string]interface{}{
		"event":     "media",
		"streamSid": l.streamSid,
		"media": map[string]string{
			"payload": base64.StdEncoding.EncodeToString(chunk),
		},
	}
	return l.conn.WriteJSON(frame)
}

// SendClear flushes the caller's playback buffer. The Controller sends
// exactly one of these before the first chunk of any new utterance.
func (l *callLink) SendClear() error {
	frame := map[string]interface{}{
		"event":     "clear",
		"streamSid": l.streamSid,
	}
	return l.conn.WriteJSON(frame)
}

// SendMark signals end-of-utterance so the downstream consumer can
// correlate playback completion with this specific TTS turn.
func (l *callLink) SendMark(name string) error {
	frame := map[string]interface{}{
		"event":     "mark",
		"streamSid": l.streamSid,
		"mark": map[string]string{
			"name": name,
		},
	}
	return l.conn.WriteJSON(frame)
}
