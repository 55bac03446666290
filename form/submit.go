package form

import (
	"context"
	"errors"

	"github.com/acolella/voxpop/log"
	"github.com/acolella/voxpop/model"
)

// ErrSubmitFailed is the generic, retryable failure surfaced to the user
// when the network call does not succeed. All captured state survives a
// failed submission; retry is manual.
var ErrSubmitFailed = errors.New("could not send your feedback, please try again")

// Payload is the serialized submission. Exactly one of Audio and Text is
// set, never both.
type Payload struct {
	CompanyID  string
	CampaignID string
	OrderID    string
	NPSScore   *int
	Audio      []byte
	Text       string
	Answers    map[string]model.AnswerValue
}

// Submitter performs the single network call of a submission.
type Submitter interface {
	Submit(ctx context.Context, p Payload) error
}

// Submit runs the one-shot submission protocol:
//
//  1. validate; a failure leaves the session in editing and reports the
//     gate's reason
//  2. transition to submitting; re-entrant calls while in flight are
//     ignored, so two rapid submits yield one network call
//  3. force any in-progress voice capture to finalize
//  4. serialize the payload
//  5. perform exactly one network call; failure transitions to failed
//     with every captured value intact, success is terminal
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting || s.state == StateSubmitted {
		s.mu.Unlock()
		return nil
	}
	if err := Validate(s.campaign, s.snapshotLocked()); err != nil {
		s.state = StateEditing
		s.mu.Unlock()
		return err
	}
	s.state = StateSubmitting
	rec := s.recorder
	s.mu.Unlock()

	if rec != nil {
		rec.Stop()
	}

	s.mu.Lock()
	payload := s.payloadLocked()
	s.mu.Unlock()

	err := s.submitter.Submit(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Errorf("form.submit: %s", err)
		s.state = StateFailed
		return ErrSubmitFailed
	}
	s.state = StateSubmitted
	return nil
}

func (s *Session) payloadLocked() Payload {
	p := Payload{
		CompanyID: s.campaign.CompanyID,
		OrderID:   s.orderID,
		NPSScore:  s.nps,
	}
	if s.campaign.ID != 0 {
		p.CampaignID = campaignID(s.campaign.ID)
	}

	// One channel only: the active mode decides which value ships.
	switch {
	case s.mode == ModeVoice && len(s.voice) > 0:
		p.Audio = s.voice
	case s.mode == ModeText && s.text != "":
		p.Text = s.text
	}

	if len(s.answers) > 0 {
		p.Answers = make(map[string]model.AnswerValue, len(s.answers))
		for id, v := range s.answers {
			p.Answers[id] = v
		}
	}
	return p
}
