package form

import "sync"

// Capturer is the audio capture collaborator. Start begins a capture and
// registers a completion callback the capturer invokes once if it finishes
// on its own (e.g. an enforced time limit). Stop halts an active capture
// and returns whatever was captured, possibly nil.
type Capturer interface {
	Start(done func(blob []byte)) error
	Stop() []byte
}

type RecorderState int

const (
	RecIdle RecorderState = iota
	RecRecording
	RecRecorded
	RecPlaying
)

func (s RecorderState) String() string {
	switch s {
	case RecIdle:
		return "idle"
	case RecRecording:
		return "recording"
	case RecRecorded:
		return "recorded"
	case RecPlaying:
		return "playing"
	}
	return "unknown"
}

// Recorder drives the voice capture state machine for one prompt:
//
//	idle --Start--> recording --Stop--> recorded --Discard--> idle
//	recorded --Play--> playing --Pause--> recorded
//
// Exactly one finalized blob is live at any time; the owner callback fires
// on every live-value change, including the transition back to absent.
// The capturer's own completion signal is asynchronous and may race a
// user-initiated stop; a generation counter drops stale signals.
type Recorder struct {
	mu       sync.Mutex
	state    RecorderState
	blob     []byte
	cap      Capturer
	onChange func(blob []byte)
	gen      int
}

func NewRecorder(cap Capturer, onChange func(blob []byte)) *Recorder {
	return &Recorder{cap: cap, onChange: onChange}
}

func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Blob() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blob
}

// Start begins a capture. Capability errors (device unavailable, permission
// denied) are returned inline and leave the recorder idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state != RecIdle {
		r.mu.Unlock()
		return nil
	}
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	err := r.cap.Start(func(blob []byte) {
		r.complete(gen, blob)
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.gen == gen && r.state == RecIdle {
		r.state = RecRecording
	}
	r.mu.Unlock()
	return nil
}

// complete handles the capturer's self-completion signal.
func (r *Recorder) complete(gen int, blob []byte) {
	r.mu.Lock()
	if r.gen != gen || r.state != RecRecording {
		// A stop or abort already finalized this capture.
		r.mu.Unlock()
		return
	}
	r.finalizeLocked(blob)
}

// Stop finalizes an in-progress capture, keeping the captured blob.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != RecRecording {
		r.mu.Unlock()
		return
	}
	r.gen++
	blob := r.cap.Stop()
	r.finalizeLocked(blob)
}

// finalizeLocked transitions recording -> recorded (or back to idle when
// nothing was captured), releases the lock and notifies the owner.
func (r *Recorder) finalizeLocked(blob []byte) {
	r.blob = blob
	if blob == nil {
		r.state = RecIdle
	} else {
		r.state = RecRecorded
	}
	notify := r.onChange
	r.mu.Unlock()
	if notify != nil {
		notify(blob)
	}
}

// Abort force-stops an in-progress capture and discards it, as when the
// active channel switches away from voice mid-recording. A previously
// finalized blob is left alone.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.state != RecRecording {
		r.mu.Unlock()
		return
	}
	r.gen++
	r.cap.Stop()
	r.blob = nil
	r.state = RecIdle
	notify := r.onChange
	r.mu.Unlock()
	if notify != nil {
		notify(nil)
	}
}

// Discard drops a finalized recording and returns to idle.
func (r *Recorder) Discard() {
	r.mu.Lock()
	if r.state != RecRecorded && r.state != RecPlaying {
		r.mu.Unlock()
		return
	}
	r.blob = nil
	r.state = RecIdle
	notify := r.onChange
	r.mu.Unlock()
	if notify != nil {
		notify(nil)
	}
}

// Play and Pause toggle local playback; they never touch the live value.
func (r *Recorder) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RecRecorded {
		r.state = RecPlaying
	}
}

func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RecPlaying {
		r.state = RecRecorded
	}
}
