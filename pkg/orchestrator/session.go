package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one live call: its identity, conversation history, mode, and
// audio state. Exactly one controller task (C9) drives a Session; other
// components read and append through its synchronized accessors.
type Session struct {
	mu sync.RWMutex

	id        string
	streamID  string
	startedAt time.Time
	ended     bool
	endReason EndReason

	history []Message
	mode    Mode

	Audio *AudioState
}

// NewSession creates a fresh Session for a newly-accepted telephony stream.
// If id is empty, a uuid is generated.
func NewSession(id, streamID string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:        id,
		streamID:  streamID,
		startedAt: time.Now(),
		mode:      ModeNone,
		Audio:     newAudioState(),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) StreamID() string { return s.streamID }
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// AppendMessage adds one turn to the conversation history.
func (s *Session) AppendMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}

// History returns a defensive copy of the conversation so far.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// LastUserMessage returns the most recent RoleUser message, if any.
func (s *Session) LastUserMessage() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == RoleUser {
			return s.history[i], true
		}
	}
	return Message{}, false
}

func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *Session) GetMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// MarkEnded closes the session with reason, idempotently: the first call
// wins and later calls are no-ops, so a race between e.g. caller-hangup and
// silence-timeout detection can't overwrite the original reason.
func (s *Session) MarkEnded(reason EndReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.endReason = reason
}

func (s *Session) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

func (s *Session) EndReason() EndReason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endReason
}

// Duration reports how long the session has been (or was) alive.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startedAt)
}
