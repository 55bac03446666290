package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolella/voxpop/model"
)

type countingSubmitter struct {
	calls   atomic.Int32
	err     error
	started chan struct{}
	block   chan struct{}
	mu      sync.Mutex
	last    Payload
	hasLast bool
}

func (c *countingSubmitter) Submit(ctx context.Context, p Payload) error {
	c.calls.Add(1)
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.last = p
	c.hasLast = true
	c.mu.Unlock()
	return c.err
}

func completeSession(sub Submitter, cap Capturer) *Session {
	s := NewSession(testCampaign(), sub, cap)
	s.SetConsent(true)
	s.SetNPS(9)
	s.SetOrderID("ORD-1")
	s.SetAnswer("q1", model.ChoiceAnswer("B"))
	return s
}

func TestSubmitTextPayload(t *testing.T) {
	sub := &countingSubmitter{}
	s := completeSession(sub, nil)
	s.SetText("Great!")

	require.NoError(t, s.Submit(context.Background()))
	require.Equal(t, StateSubmitted, s.State())
	require.True(t, sub.hasLast)

	p := sub.last
	assert.Equal(t, "ORD-1", p.OrderID)
	assert.Equal(t, "acme", p.CompanyID)
	assert.Equal(t, "7", p.CampaignID)
	assert.Equal(t, 9, *p.NPSScore)
	assert.Equal(t, "Great!", p.Text)
	assert.Nil(t, p.Audio, "text mode ships no audio")
	assert.Equal(t, map[string]model.AnswerValue{"q1": model.ChoiceAnswer("B")}, p.Answers)
}

func TestSubmitVoicePayload(t *testing.T) {
	sub := &countingSubmitter{}
	cap := &fakeCapturer{blob: []byte("recording")}
	s := completeSession(sub, cap)
	s.SetText("typed then switched away")
	require.NoError(t, s.SetMode(ModeVoice))

	rec := s.Recorder()
	require.NoError(t, rec.Start())
	rec.Stop()

	require.NoError(t, s.Submit(context.Background()))

	p := sub.last
	assert.Equal(t, []byte("recording"), p.Audio)
	assert.Empty(t, p.Text, "voice mode ships no text, even if some was typed")
}

// Submitting while a capture is still running finalizes it first; the blob
// makes it into the payload.
func TestSubmitFinalizesCapture(t *testing.T) {
	sub := &countingSubmitter{}
	cap := &fakeCapturer{blob: []byte("last words")}
	s := completeSession(sub, cap)

	require.NoError(t, s.Recorder().Start())
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, RecRecorded, s.Recorder().State())
	assert.Equal(t, []byte("last words"), sub.last.Audio)
}

func TestSubmitValidationFailureMakesNoCall(t *testing.T) {
	sub := &countingSubmitter{}
	s := completeSession(sub, nil)
	s.SetNPS(9)
	s.SetConsent(false)

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Equal(t, StateEditing, s.State())
	assert.Equal(t, int32(0), sub.calls.Load())
}

func TestSubmitNPSRequiredMakesNoCall(t *testing.T) {
	sub := &countingSubmitter{}
	s := NewSession(testCampaign(), sub, nil)
	s.SetConsent(true)
	s.SetOrderID("ORD-1")
	s.SetAnswer("q1", model.ChoiceAnswer("A"))

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNPSRequired)
	assert.Equal(t, int32(0), sub.calls.Load())
}

// Two submits in immediate succession make exactly one network call.
func TestSubmitIdempotent(t *testing.T) {
	sub := &countingSubmitter{
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	s := completeSession(sub, nil)
	s.SetText("once")

	first := make(chan error, 1)
	go func() { first <- s.Submit(context.Background()) }()

	// wait for the first call to be in flight
	<-sub.started
	require.Equal(t, StateSubmitting, s.State())

	// re-entrant submit is ignored
	require.NoError(t, s.Submit(context.Background()))

	close(sub.block)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, StateSubmitted, s.State())
}

func TestSubmitFailureKeepsState(t *testing.T) {
	sub := &countingSubmitter{err: errors.New("boom")}
	s := completeSession(sub, nil)
	s.SetText("keep me")

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Equal(t, StateFailed, s.State())

	// everything the user entered survives for a manual retry
	assert.Equal(t, "keep me", s.Text())
	assert.Equal(t, "ORD-1", s.OrderID())
	assert.Equal(t, model.ChoiceAnswer("B"), s.Answers()["q1"])

	// the retry goes through once the transport recovers
	sub.err = nil
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, StateSubmitted, s.State())
	assert.Equal(t, int32(2), sub.calls.Load())
}

func TestSubmitAfterSubmittedIsIgnored(t *testing.T) {
	sub := &countingSubmitter{}
	s := completeSession(sub, nil)
	s.SetText("once only")

	require.NoError(t, s.Submit(context.Background()))
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, int32(1), sub.calls.Load())
}
