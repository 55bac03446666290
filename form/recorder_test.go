package form

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapturer records start/stop calls and lets tests fire the async
// completion signal by hand.
type fakeCapturer struct {
	mu       sync.Mutex
	blob     []byte
	startErr error
	done     func([]byte)
	starts   int
	stops    int
}

func (c *fakeCapturer) Start(done func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.done = done
	c.starts++
	return nil
}

func (c *fakeCapturer) Stop() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return c.blob
}

func (c *fakeCapturer) complete(blob []byte) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	done(blob)
}

func TestRecorderLifecycle(t *testing.T) {
	var live [][]byte
	cap := &fakeCapturer{blob: []byte("audio")}
	rec := NewRecorder(cap, func(blob []byte) { live = append(live, blob) })

	assert.Equal(t, RecIdle, rec.State())

	require.NoError(t, rec.Start())
	assert.Equal(t, RecRecording, rec.State())

	rec.Stop()
	assert.Equal(t, RecRecorded, rec.State())
	assert.Equal(t, []byte("audio"), rec.Blob())
	require.Equal(t, [][]byte{[]byte("audio")}, live)

	// playback never touches the live value
	rec.Play()
	assert.Equal(t, RecPlaying, rec.State())
	rec.Pause()
	assert.Equal(t, RecRecorded, rec.State())
	assert.Len(t, live, 1)

	rec.Discard()
	assert.Equal(t, RecIdle, rec.State())
	assert.Nil(t, rec.Blob())
	require.Len(t, live, 2)
	assert.Nil(t, live[1])
}

func TestRecorderStopWithNothingCaptured(t *testing.T) {
	cap := &fakeCapturer{}
	rec := NewRecorder(cap, nil)

	require.NoError(t, rec.Start())
	rec.Stop()
	assert.Equal(t, RecIdle, rec.State())
	assert.Nil(t, rec.Blob())
}

func TestRecorderSelfCompletion(t *testing.T) {
	cap := &fakeCapturer{}
	rec := NewRecorder(cap, nil)

	require.NoError(t, rec.Start())
	// time limit hit: the capturer finishes on its own
	cap.complete([]byte("partial"))
	assert.Equal(t, RecRecorded, rec.State())
	assert.Equal(t, []byte("partial"), rec.Blob())
}

func TestRecorderStaleCompletionIgnored(t *testing.T) {
	cap := &fakeCapturer{blob: []byte("stopped")}
	rec := NewRecorder(cap, nil)

	require.NoError(t, rec.Start())
	rec.Stop()
	require.Equal(t, []byte("stopped"), rec.Blob())

	// the collaborator's signal arrives just after the user stop
	cap.complete([]byte("late"))
	assert.Equal(t, []byte("stopped"), rec.Blob())
	assert.Equal(t, RecRecorded, rec.State())
}

func TestRecorderStartError(t *testing.T) {
	cap := &fakeCapturer{startErr: errors.New("permission denied")}
	rec := NewRecorder(cap, nil)

	assert.Error(t, rec.Start())
	assert.Equal(t, RecIdle, rec.State())
}

// Switching the channel away from voice mid-recording force-stops the
// capture and discards it: the recorder ends idle with no blob.
func TestModeSwitchAbortsRecording(t *testing.T) {
	cap := &fakeCapturer{blob: []byte("half a sentence")}
	s := NewSession(testCampaign(), nopSubmitter{}, cap)
	rec := s.Recorder()
	require.NotNil(t, rec)

	require.NoError(t, rec.Start())
	require.Equal(t, RecRecording, rec.State())

	require.NoError(t, s.SetMode(ModeText))

	assert.Equal(t, RecIdle, rec.State())
	assert.Nil(t, s.VoiceBlob())
	assert.Equal(t, 1, cap.stops)
}

// A finalized recording survives channel switches.
func TestModeSwitchKeepsFinalizedBlob(t *testing.T) {
	cap := &fakeCapturer{blob: []byte("done")}
	s := NewSession(testCampaign(), nopSubmitter{}, cap)
	rec := s.Recorder()

	require.NoError(t, rec.Start())
	rec.Stop()
	require.Equal(t, []byte("done"), s.VoiceBlob())

	require.NoError(t, s.SetMode(ModeText))
	require.NoError(t, s.SetMode(ModeVoice))

	assert.Equal(t, RecRecorded, rec.State())
	assert.Equal(t, []byte("done"), s.VoiceBlob())
}

func TestDiscardClearsSessionValue(t *testing.T) {
	cap := &fakeCapturer{blob: []byte("oops")}
	s := NewSession(testCampaign(), nopSubmitter{}, cap)
	rec := s.Recorder()

	require.NoError(t, rec.Start())
	rec.Stop()
	require.NotNil(t, s.VoiceBlob())

	rec.Discard()
	assert.Nil(t, s.VoiceBlob())
}
