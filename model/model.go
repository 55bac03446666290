package model

import "time"

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionRating         QuestionType = "rating"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionYesNo          QuestionType = "yes_no"
)

// KnownType reports whether t is one of the supported question types.
// Unknown values survive JSON decoding; dispatch and validation skip them.
func KnownType(t QuestionType) bool {
	switch t {
	case QuestionText, QuestionRating, QuestionMultipleChoice, QuestionYesNo:
		return true
	}
	return false
}

type RatingScale struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	MinLabel string `json:"minLabel,omitempty"`
	MaxLabel string `json:"maxLabel,omitempty"`
}

type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text" validate:"required"`
	Type     QuestionType `json:"type" validate:"required,oneof=text rating multiple_choice yes_no"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty" validate:"required_if=Type multiple_choice"`
	Scale    *RatingScale `json:"scale,omitempty"`
}

type CampaignSettings struct {
	AllowVoice     bool `json:"allowVoice"`
	AllowText      bool `json:"allowText"`
	RequireOrderID bool `json:"requireOrderId"`
}

type Campaign struct {
	ID               int              `json:"id,omitempty"`
	Version          int              `json:"version,omitempty"`
	CompanyID        string           `json:"companyId" validate:"required"`
	Name             string           `json:"name" validate:"required"`
	IncludeNPS       bool             `json:"includeNps"`
	NPSQuestion      string           `json:"npsQuestionText,omitempty"`
	IncludeQuestions bool             `json:"includeAdditionalQuestions"`
	Questions        []Question       `json:"questions" validate:"dive"`
	Settings         CampaignSettings `json:"settings"`
}

// QuestionByID looks a question up in display order.
func (c Campaign) QuestionByID(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type Feedback struct {
	ID         string                 `json:"id"`
	CampaignID int                    `json:"campaignId,omitempty"`
	CompanyID  string                 `json:"companyId"`
	OrderID    string                 `json:"orderId"`
	NPSScore   *int                   `json:"npsScore,omitempty"`
	Mode       string                 `json:"feedbackMode"`
	Text       string                 `json:"textFeedback,omitempty"`
	Audio      []byte                 `json:"-"`
	Answers    map[string]AnswerValue `json:"questionResponses,omitempty"`
	Time       time.Time              `json:"time"`

	Transcript string    `json:"transcript,omitempty"`
	Sentiment  Sentiment `json:"sentiment,omitempty"`
	Themes     []string  `json:"themes,omitempty"`
	Analyzed   bool      `json:"analyzed"`
}

type DailySummary struct {
	CompanyID string    `json:"companyId"`
	Day       string    `json:"day"`
	Summary   string    `json:"summary"`
	Generated time.Time `json:"generatedAt"`
}

type NPSPoint struct {
	Day        string  `json:"day"`
	Responses  int     `json:"responses"`
	Average    float64 `json:"average"`
	Promoters  int     `json:"promoters"`
	Detractors int     `json:"detractors"`
	Score      float64 `json:"score"`
}
