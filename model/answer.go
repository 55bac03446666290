package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type AnswerKind int

const (
	AnswerAbsent AnswerKind = iota
	AnswerText
	AnswerRating
	AnswerChoice
	AnswerYesNo
)

// AnswerValue is a tagged variant whose live field is fixed by the owning
// question's type. The zero value is "absent". No coercion between kinds:
// a rating can never be read back as text and vice versa.
type AnswerValue struct {
	kind   AnswerKind
	text   string
	rating int
	choice string
	yesNo  bool
}

func TextAnswer(s string) AnswerValue     { return AnswerValue{kind: AnswerText, text: s} }
func RatingAnswer(n int) AnswerValue      { return AnswerValue{kind: AnswerRating, rating: n} }
func ChoiceAnswer(opt string) AnswerValue { return AnswerValue{kind: AnswerChoice, choice: opt} }
func YesNoAnswer(b bool) AnswerValue      { return AnswerValue{kind: AnswerYesNo, yesNo: b} }

func (v AnswerValue) Kind() AnswerKind { return v.kind }
func (v AnswerValue) Text() string     { return v.text }
func (v AnswerValue) Rating() int      { return v.rating }
func (v AnswerValue) Choice() string   { return v.choice }
func (v AnswerValue) Bool() bool       { return v.yesNo }

// Answered reports whether the value counts as a response: any conforming
// value does, including a rating at its scale minimum; an absent value or
// an empty text does not.
func (v AnswerValue) Answered() bool {
	switch v.kind {
	case AnswerText:
		return v.text != ""
	case AnswerRating, AnswerChoice, AnswerYesNo:
		return true
	}
	return false
}

// String renders the bare value for tabular output.
func (v AnswerValue) String() string {
	switch v.kind {
	case AnswerText:
		return v.text
	case AnswerRating:
		return strconv.Itoa(v.rating)
	case AnswerChoice:
		return v.choice
	case AnswerYesNo:
		if v.yesNo {
			return "yes"
		}
		return "no"
	}
	return ""
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AnswerText:
		return json.Marshal(v.text)
	case AnswerRating:
		return json.Marshal(v.rating)
	case AnswerChoice:
		return json.Marshal(v.choice)
	case AnswerYesNo:
		return json.Marshal(v.yesNo)
	}
	return []byte("null"), nil
}

// UnmarshalJSON infers the kind from the JSON shape alone. The bare wire
// value does not carry a kind, so a choice reads back as text; use
// DecodeAnswer when the owning question is at hand.
func (v *AnswerValue) UnmarshalJSON(raw []byte) error {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	switch val := decoded.(type) {
	case nil:
		*v = AnswerValue{}
	case string:
		*v = TextAnswer(val)
	case float64:
		*v = RatingAnswer(int(val))
	case bool:
		*v = YesNoAnswer(val)
	default:
		return fmt.Errorf("unexpected answer value %s", raw)
	}
	return nil
}

// DecodeAnswer parses a raw JSON value as an answer to q, enforcing the
// type-specific shape: ratings must be integers within the scale, choices
// must be one of the listed options.
func DecodeAnswer(q Question, raw json.RawMessage) (AnswerValue, error) {
	switch q.Type {
	case QuestionText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, fmt.Errorf("question %s: expected string: %w", q.ID, err)
		}
		return TextAnswer(s), nil

	case QuestionRating:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return AnswerValue{}, fmt.Errorf("question %s: expected integer: %w", q.ID, err)
		}
		if q.Scale != nil && (n < q.Scale.Min || n > q.Scale.Max) {
			return AnswerValue{}, fmt.Errorf("question %s: rating %d out of scale [%d,%d]", q.ID, n, q.Scale.Min, q.Scale.Max)
		}
		return RatingAnswer(n), nil

	case QuestionMultipleChoice:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, fmt.Errorf("question %s: expected string: %w", q.ID, err)
		}
		for _, opt := range q.Options {
			if opt == s {
				return ChoiceAnswer(s), nil
			}
		}
		return AnswerValue{}, fmt.Errorf("question %s: %q is not a listed option", q.ID, s)

	case QuestionYesNo:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return AnswerValue{}, fmt.Errorf("question %s: expected boolean: %w", q.ID, err)
		}
		return YesNoAnswer(b), nil
	}

	return AnswerValue{}, fmt.Errorf("question %s: unsupported type %q", q.ID, q.Type)
}
