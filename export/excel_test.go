package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolella/voxpop/model"
)

func TestWorkbook(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Type: model.QuestionMultipleChoice, Text: "How did you hear about us?"},
		{ID: "q2", Type: model.QuestionRating, Text: "Rate the packaging"},
	}
	nps := 9
	feedback := []model.Feedback{
		{
			Time:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			OrderID:    "ORD-1",
			CampaignID: 7,
			NPSScore:   &nps,
			Mode:       "voice",
			Transcript: "Loved it",
			Sentiment:  model.SentimentPositive,
			Themes:     []string{"quality", "delivery"},
			Answers: map[string]model.AnswerValue{
				"q1": model.ChoiceAnswer("Friend"),
				"q2": model.RatingAnswer(4),
			},
		},
		{
			Time:    time.Date(2026, 3, 13, 18, 5, 0, 0, time.UTC),
			OrderID: "ORD-2",
			Mode:    "text",
			Text:    "Box arrived dented",
		},
	}

	f, err := Workbook(questions, feedback)
	require.NoError(t, err)

	cell := func(ref string) string {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Time", cell("A1"))
	assert.Equal(t, "How did you hear about us?", cell("I1"))
	assert.Equal(t, "Rate the packaging", cell("J1"))

	assert.Equal(t, "2026-03-14 09:30", cell("A2"))
	assert.Equal(t, "ORD-1", cell("B2"))
	assert.Equal(t, "7", cell("C2"))
	assert.Equal(t, "9", cell("D2"))
	assert.Equal(t, "voice", cell("E2"))
	assert.Equal(t, "Loved it", cell("F2"), "transcript stands in for text in voice mode")
	assert.Equal(t, "positive", cell("G2"))
	assert.Equal(t, "quality, delivery", cell("H2"))
	assert.Equal(t, "Friend", cell("I2"))
	assert.Equal(t, "4", cell("J2"))

	assert.Equal(t, "ORD-2", cell("B3"))
	assert.Equal(t, "", cell("C3"), "no campaign stays blank")
	assert.Equal(t, "", cell("D3"), "missing score stays blank")
	assert.Equal(t, "Box arrived dented", cell("F3"))
	assert.Equal(t, "", cell("I3"), "unanswered question stays blank")
}
