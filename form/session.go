package form

import (
	"fmt"
	"sync"

	"github.com/acolella/voxpop/model"
)

type Mode string

const (
	ModeVoice Mode = "voice"
	ModeText  Mode = "text"
)

type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Session is the mutable state of one in-progress feedback submission.
// It is created from a resolved campaign, mutated by input handlers and
// the recorder, and torn down once it reaches StateSubmitted.
//
// All state transitions happen on discrete events; the mutex only guards
// against the recorder's completion signal, which can arrive at any time.
type Session struct {
	mu       sync.Mutex
	campaign model.Campaign

	orderID         string
	orderIDEditable bool
	nps             *int
	mode            Mode
	text            string
	voice           []byte
	answers         map[string]model.AnswerValue
	consent         bool
	state           State

	recorder  *Recorder
	submitter Submitter
}

// NewSession builds a session for one campaign. cap may be nil when the
// environment has no audio capture; the voice channel is then unavailable
// regardless of campaign settings.
func NewSession(campaign model.Campaign, submitter Submitter, cap Capturer) *Session {
	s := &Session{
		campaign:        campaign,
		orderIDEditable: true,
		answers:         map[string]model.AnswerValue{},
		submitter:       submitter,
	}

	if campaign.Settings.AllowVoice && cap != nil {
		s.recorder = NewRecorder(cap, s.storeVoice)
		s.mode = ModeVoice
	} else {
		s.mode = ModeText
	}
	return s
}

func (s *Session) Campaign() model.Campaign { return s.campaign }

// Recorder returns the voice sub-engine, or nil when voice is unavailable.
func (s *Session) Recorder() *Recorder { return s.recorder }

// Prefill sets the order id from an external source (e.g. a link parameter)
// and makes the field read-only, which exempts it from validation.
func (s *Session) Prefill(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return
	}
	s.orderID = orderID
	s.orderIDEditable = false
}

func (s *Session) SetOrderID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted || !s.orderIDEditable {
		return
	}
	s.orderID = id
}

func (s *Session) SetNPS(score int) error {
	if score < 1 || score > 10 {
		return fmt.Errorf("nps score %d out of range [1,10]", score)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return nil
	}
	s.nps = &score
	return nil
}

func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return
	}
	s.text = text
}

func (s *Session) SetConsent(given bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return
	}
	s.consent = given
}

// SetMode switches the active feedback channel. Switching away from voice
// while a capture is in progress force-stops the recorder and discards the
// unfinalized capture; a previously finalized blob is retained.
func (s *Session) SetMode(m Mode) error {
	switch m {
	case ModeVoice:
		if !s.campaign.Settings.AllowVoice || s.recorder == nil {
			return fmt.Errorf("voice feedback not available")
		}
	case ModeText:
		if !s.campaign.Settings.AllowText {
			return fmt.Errorf("text feedback not available")
		}
	default:
		return fmt.Errorf("unknown feedback mode %q", m)
	}

	s.mu.Lock()
	if s.state == StateSubmitted || s.mode == m {
		s.mu.Unlock()
		return nil
	}
	prev := s.mode
	s.mode = m
	rec := s.recorder
	s.mu.Unlock()

	// No dangling capture survives a channel switch.
	if prev == ModeVoice && rec != nil {
		rec.Abort()
	}
	return nil
}

// SetAnswer replaces the answer for one question, leaving all other
// accumulated state untouched. It is total: it never fails, because
// non-conforming values are rejected at the input boundary.
func (s *Session) SetAnswer(questionID string, v model.AnswerValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return
	}
	s.answers[questionID] = v
}

// InputFor builds the capture behavior for one question, wired to this
// session's accumulator.
func (s *Session) InputFor(q model.Question) (Input, error) {
	return NewInput(q, func(v model.AnswerValue) {
		s.SetAnswer(q.ID, v)
	})
}

// storeVoice is the recorder's owner callback: the live voice value changed.
func (s *Session) storeVoice(blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return
	}
	s.voice = blob
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

func (s *Session) NPS() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nps
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) VoiceBlob() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

func (s *Session) Consent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consent
}

// Answers returns a copy of the accumulated question responses.
func (s *Session) Answers() map[string]model.AnswerValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.AnswerValue, len(s.answers))
	for id, v := range s.answers {
		out[id] = v
	}
	return out
}

// Snapshot captures the validation-relevant state at one instant.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make(map[string]model.AnswerValue, len(s.answers))
	for id, v := range s.answers {
		answers[id] = v
	}
	return Snapshot{
		OrderID:         s.orderID,
		OrderIDEditable: s.orderIDEditable,
		NPSScore:        s.nps,
		Consent:         s.consent,
		Answers:         answers,
	}
}
