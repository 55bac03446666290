package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnswerConformance(t *testing.T) {
	rating := Question{ID: "r", Type: QuestionRating, Scale: &RatingScale{Min: 1, Max: 5}}
	choice := Question{ID: "c", Type: QuestionMultipleChoice, Options: []string{"A", "B"}}

	tests := []struct {
		name    string
		q       Question
		raw     string
		want    AnswerValue
		wantErr bool
	}{
		{"text", Question{ID: "t", Type: QuestionText}, `"hello"`, TextAnswer("hello"), false},
		{"text rejects number", Question{ID: "t", Type: QuestionText}, `3`, AnswerValue{}, true},
		{"rating in bounds", rating, `3`, RatingAnswer(3), false},
		{"rating at min", rating, `1`, RatingAnswer(1), false},
		{"rating below min", rating, `0`, AnswerValue{}, true},
		{"rating above max", rating, `6`, AnswerValue{}, true},
		{"rating rejects string", rating, `"3"`, AnswerValue{}, true},
		{"choice listed", choice, `"B"`, ChoiceAnswer("B"), false},
		{"choice unlisted", choice, `"Z"`, AnswerValue{}, true},
		{"yes_no", Question{ID: "y", Type: QuestionYesNo}, `true`, YesNoAnswer(true), false},
		{"yes_no rejects string", Question{ID: "y", Type: QuestionYesNo}, `"yes"`, AnswerValue{}, true},
		{"unsupported type", Question{ID: "u", Type: "matrix"}, `"x"`, AnswerValue{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAnswer(tt.q, json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnswered(t *testing.T) {
	assert.False(t, AnswerValue{}.Answered())
	assert.False(t, TextAnswer("").Answered())
	assert.True(t, TextAnswer("x").Answered())
	assert.True(t, RatingAnswer(1).Answered(), "scale minimum counts as answered")
	assert.True(t, ChoiceAnswer("A").Answered())
	assert.True(t, YesNoAnswer(false).Answered(), "a 'no' is still an answer")
}

func TestAnswerJSON(t *testing.T) {
	out, err := json.Marshal(map[string]AnswerValue{
		"q1": ChoiceAnswer("B"),
		"q2": RatingAnswer(4),
		"q3": YesNoAnswer(false),
		"q4": TextAnswer("ok"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"q1":"B","q2":4,"q3":false,"q4":"ok"}`, string(out))
}

func TestAnswerJSONRoundTrip(t *testing.T) {
	var got map[string]AnswerValue
	require.NoError(t, json.Unmarshal([]byte(`{"q1":"B","q2":4,"q3":false,"q4":null}`), &got))

	// the bare wire value carries no kind, so strings come back as text
	assert.Equal(t, TextAnswer("B"), got["q1"])
	assert.Equal(t, RatingAnswer(4), got["q2"])
	assert.Equal(t, YesNoAnswer(false), got["q3"])
	assert.False(t, got["q4"].Answered())
}

func TestAnswerString(t *testing.T) {
	assert.Equal(t, "4", RatingAnswer(4).String())
	assert.Equal(t, "yes", YesNoAnswer(true).String())
	assert.Equal(t, "no", YesNoAnswer(false).String())
	assert.Equal(t, "B", ChoiceAnswer("B").String())
	assert.Equal(t, "", AnswerValue{}.String())
}
