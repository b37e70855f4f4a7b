package orchestrator

import (
	"strings"
	"sync"
	"time"
)

// TranscriptBuffer accumulates the committed finals of one user utterance
// and decides, via a pause timer restarted on every event (partial or
// final), when the utterance is done and should be handed to the decision
// engine. A partial never contributes text of its own — it only proves the
// caller is still talking, so the pause timer keeps being pushed out. The
// timer duration depends on the session Mode: the longer phonePause applies
// in the capture_lead, create_appt and edit_appt modes, the shortPause in
// all others. Nothing inspects the transcript itself to switch pauses.
type TranscriptBuffer struct {
	mu     sync.Mutex
	finals []string

	shortPause time.Duration
	phonePause time.Duration
	ceiling    time.Duration

	timer   *time.Timer
	onFinal func(string)
}

// NewTranscriptBuffer builds a buffer that calls onFinal once the pause
// timer elapses with no further transcript events. shortPause/phonePause/
// ceiling mirror the tunables in RuntimeConfig (700ms/1000ms/15s by
// default).
func NewTranscriptBuffer(shortPause, phonePause, ceiling time.Duration, onFinal func(string)) *TranscriptBuffer {
	return &TranscriptBuffer{
		shortPause: shortPause,
		phonePause: phonePause,
		ceiling:    ceiling,
		onFinal:    onFinal,
	}
}

// AddPartial rearms the pause timer for a running/interim transcript
// fragment without committing any text: consumers may see several finals
// per utterance, and only finals are ever joined into the delivered text.
func (b *TranscriptBuffer) AddPartial(_ string, mode Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armTimer(b.pauseFor(mode))
}

// AddFinal appends one committed phrase completion to the utterance being
// assembled and rearms the pause timer.
func (b *TranscriptBuffer) AddFinal(fragment string, mode Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fragment = strings.TrimSpace(fragment)
	if fragment != "" {
		b.finals = append(b.finals, fragment)
	}
	b.armTimer(b.pauseFor(mode))
}

// Flush cancels any pending timer and immediately delivers the accumulated
// finals. The Controller does not call it.
func (b *TranscriptBuffer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	text := strings.TrimSpace(strings.Join(b.finals, " "))
	b.finals = nil
	b.mu.Unlock()

	if len(text) >= 2 && b.onFinal != nil {
		b.onFinal(text)
	}
}

// Reset discards any accumulated finals without delivering them. The
// Controller does not call it.
func (b *TranscriptBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.finals = nil
}

func (b *TranscriptBuffer) pauseFor(mode Mode) time.Duration {
	switch mode {
	case ModeCaptureLead, ModeCreateAppt, ModeEditAppt:
		return b.phonePause
	default:
		return b.shortPause
	}
}

// armTimer must be called with b.mu held.
func (b *TranscriptBuffer) armTimer(d time.Duration) {
	if d > b.ceiling {
		d = b.ceiling
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(d, func() {
		b.mu.Lock()
		text := strings.TrimSpace(strings.Join(b.finals, " "))
		b.finals = nil
		b.timer = nil
		b.mu.Unlock()

		if len(text) >= 2 && b.onFinal != nil {
			b.onFinal(text)
		}
	})
}
