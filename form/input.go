package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/acolella/voxpop/model"
)

// ErrUnsupportedQuestion marks a question whose type this engine does not
// know. The question renders as a no-op placeholder; the rest of the form
// is unaffected.
var ErrUnsupportedQuestion = errors.New("unsupported question type")

// Input is the capture behavior for one question. Set parses raw user
// input; when it conforms to the question type it becomes the current
// value and is emitted through the onChange callback, otherwise nothing
// is emitted and the parse error is returned. Inputs hold no state beyond
// their own current value.
type Input interface {
	Question() model.Question
	Set(raw string) error
	Value() (model.AnswerValue, bool)
}

// NewInput dispatches a question to its type-specific input. The switch is
// exhaustive over the supported types; anything else yields a placeholder
// together with ErrUnsupportedQuestion.
func NewInput(q model.Question, onChange func(model.AnswerValue)) (Input, error) {
	switch q.Type {
	case model.QuestionText:
		return &textInput{base: base{q, onChange}}, nil
	case model.QuestionRating:
		return &ratingInput{base: base{q, onChange}}, nil
	case model.QuestionMultipleChoice:
		return &choiceInput{base: base{q, onChange}}, nil
	case model.QuestionYesNo:
		return &yesNoInput{base: base{q, onChange}}, nil
	}
	return &unsupportedInput{q: q}, fmt.Errorf("%w: %q", ErrUnsupportedQuestion, q.Type)
}

type base struct {
	q        model.Question
	onChange func(model.AnswerValue)
}

func (b *base) Question() model.Question { return b.q }

func (b *base) emit(v model.AnswerValue) {
	if b.onChange != nil {
		b.onChange(v)
	}
}

type textInput struct {
	base
	value model.AnswerValue
	set   bool
}

func (in *textInput) Set(raw string) error {
	in.value = model.TextAnswer(raw)
	in.set = true
	in.emit(in.value)
	return nil
}

func (in *textInput) Value() (model.AnswerValue, bool) { return in.value, in.set }

type ratingInput struct {
	base
	value model.AnswerValue
	set   bool
}

func (in *ratingInput) Set(raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("rating must be a whole number: %w", err)
	}

	min, max := 1, 5
	if in.q.Scale != nil {
		min, max = in.q.Scale.Min, in.q.Scale.Max
	}
	if n < min || n > max {
		return fmt.Errorf("rating %d out of range [%d,%d]", n, min, max)
	}

	in.value = model.RatingAnswer(n)
	in.set = true
	in.emit(in.value)
	return nil
}

func (in *ratingInput) Value() (model.AnswerValue, bool) { return in.value, in.set }

type choiceInput struct {
	base
	value model.AnswerValue
	set   bool
}

func (in *choiceInput) Set(raw string) error {
	for _, opt := range in.q.Options {
		if opt == raw {
			in.value = model.ChoiceAnswer(opt)
			in.set = true
			in.emit(in.value)
			return nil
		}
	}
	return fmt.Errorf("%q is not one of the listed options", raw)
}

func (in *choiceInput) Value() (model.AnswerValue, bool) { return in.value, in.set }

type yesNoInput struct {
	base
	value model.AnswerValue
	set   bool
}

func (in *yesNoInput) Set(raw string) error {
	var b bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y":
		b = true
	case "no", "n":
		b = false
	default:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("expected yes or no, got %q", raw)
		}
		b = parsed
	}

	in.value = model.YesNoAnswer(b)
	in.set = true
	in.emit(in.value)
	return nil
}

func (in *yesNoInput) Value() (model.AnswerValue, bool) { return in.value, in.set }

// unsupportedInput renders nothing and accepts nothing.
type unsupportedInput struct {
	q model.Question
}

func (in *unsupportedInput) Question() model.Question { return in.q }

func (in *unsupportedInput) Set(string) error {
	return ErrUnsupportedQuestion
}

func (in *unsupportedInput) Value() (model.AnswerValue, bool) {
	return model.AnswerValue{}, false
}
