package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolella/voxpop/model"
)

type nopSubmitter struct{}

func (nopSubmitter) Submit(context.Context, Payload) error { return nil }

func TestAccumulatorLastWriteWins(t *testing.T) {
	s := NewSession(testCampaign(), nopSubmitter{}, nil)

	s.SetAnswer("q1", model.ChoiceAnswer("A"))
	s.SetOrderID("ORD-1")
	s.SetAnswer("q2", model.TextAnswer("first"))
	require.NoError(t, s.SetNPS(3))
	s.SetAnswer("q1", model.ChoiceAnswer("B"))
	s.SetText("some feedback")
	s.SetAnswer("q2", model.TextAnswer("second"))

	answers := s.Answers()
	assert.Equal(t, model.ChoiceAnswer("B"), answers["q1"])
	assert.Equal(t, model.TextAnswer("second"), answers["q2"])
	assert.Len(t, answers, 2)

	// interleaved top-level updates touched nothing else
	assert.Equal(t, "ORD-1", s.OrderID())
	assert.Equal(t, 3, *s.NPS())
	assert.Equal(t, "some feedback", s.Text())
}

func TestSetNPSBounds(t *testing.T) {
	s := NewSession(testCampaign(), nopSubmitter{}, nil)

	assert.Error(t, s.SetNPS(0))
	assert.Error(t, s.SetNPS(11))
	assert.Nil(t, s.NPS())

	require.NoError(t, s.SetNPS(10))
	assert.Equal(t, 10, *s.NPS())
}

func TestPrefillLocksOrderID(t *testing.T) {
	s := NewSession(testCampaign(), nopSubmitter{}, nil)
	s.Prefill("ORD-42")

	s.SetOrderID("tampered")
	assert.Equal(t, "ORD-42", s.OrderID())
	assert.False(t, s.Snapshot().OrderIDEditable)
}

func TestDefaultMode(t *testing.T) {
	s := NewSession(testCampaign(), nopSubmitter{}, &fakeCapturer{})
	assert.Equal(t, ModeVoice, s.Mode())

	// no capturer means no voice channel
	s = NewSession(testCampaign(), nopSubmitter{}, nil)
	assert.Equal(t, ModeText, s.Mode())

	c := testCampaign()
	c.Settings.AllowVoice = false
	s = NewSession(c, nopSubmitter{}, &fakeCapturer{})
	assert.Equal(t, ModeText, s.Mode())
	assert.Error(t, s.SetMode(ModeVoice))
}

func TestSubmittedSessionIsFrozen(t *testing.T) {
	s := NewSession(testCampaign(), nopSubmitter{}, nil)
	s.SetConsent(true)
	require.NoError(t, s.SetNPS(9))
	s.SetOrderID("ORD-1")
	s.SetAnswer("q1", model.ChoiceAnswer("A"))
	s.SetText("fine")

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, StateSubmitted, s.State())

	s.SetOrderID("other")
	s.SetText("changed my mind")
	s.SetAnswer("q1", model.ChoiceAnswer("B"))
	s.SetConsent(false)

	assert.Equal(t, "ORD-1", s.OrderID())
	assert.Equal(t, "fine", s.Text())
	assert.Equal(t, model.ChoiceAnswer("A"), s.Answers()["q1"])
	assert.True(t, s.Consent())
}

func TestInputForFeedsAccumulator(t *testing.T) {
	c := testCampaign()
	s := NewSession(c, nopSubmitter{}, nil)

	in, err := s.InputFor(c.Questions[0])
	require.NoError(t, err)

	require.Error(t, in.Set("Z"), "unlisted option must not reach the session")
	assert.Empty(t, s.Answers())

	require.NoError(t, in.Set("A"))
	assert.Equal(t, model.ChoiceAnswer("A"), s.Answers()["q1"])
}
