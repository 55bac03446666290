package form

import (
	"errors"

	"github.com/acolella/voxpop/model"
)

// Validation failures, one per rule, in evaluation order. The error text is
// the reason shown to the user.
var (
	ErrConsentRequired     = errors.New("consent required")
	ErrNPSRequired         = errors.New("NPS score required")
	ErrOrderIDRequired     = errors.New("order ID required")
	ErrQuestionsUnanswered = errors.New("required questions unanswered")
)

// Snapshot is the validation-relevant slice of a session's state.
type Snapshot struct {
	OrderID         string
	OrderIDEditable bool
	NPSScore        *int
	Consent         bool
	Answers         map[string]model.AnswerValue
}

// Validate decides whether a session is complete enough to submit. It is a
// pure function of its arguments and short-circuits on the first failing
// rule, so the reported reason is always the highest-priority one:
//
//  1. consent
//  2. NPS score, when the campaign collects one
//  3. order id, when required and still user-editable
//  4. required questions answered
func Validate(c model.Campaign, s Snapshot) error {
	if !s.Consent {
		return ErrConsentRequired
	}

	if c.IncludeNPS && s.NPSScore == nil {
		return ErrNPSRequired
	}

	if c.Settings.RequireOrderID && s.OrderIDEditable && s.OrderID == "" {
		return ErrOrderIDRequired
	}

	if c.IncludeQuestions {
		for _, q := range c.Questions {
			if !q.Required || !model.KnownType(q.Type) {
				continue
			}
			if !s.Answers[q.ID].Answered() {
				return ErrQuestionsUnanswered
			}
		}
	}

	return nil
}
