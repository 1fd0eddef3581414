// Package voice captures a single bounded spoken question from the microphone.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"presentation-assistant/internal/audio"
)

var (
	// ErrDeviceUnavailable means no capture device could be opened
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrRecording is returned when a recording is already in progress
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by StopRecording when idle
	ErrNotRecording = errors.New("not recording")
	// ErrNoRecording is returned by Take when no clip is held
	ErrNoRecording = errors.New("no captured recording")
	// ErrEmptyRecording means the device produced no samples
	ErrEmptyRecording = errors.New("recording is empty")
)

// DefaultMaxDuration bounds a single recording
const DefaultMaxDuration = 30 * time.Second

type State int

const (
	StateIdle State = iota
	StateRecording
	StateCaptured
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateCaptured:
		return "Captured"
	default:
		return "Unknown"
	}
}

// Device is a mono capture stream. *audio.Input satisfies it.
type Device interface {
	SampleRate() int
	Start() error
	Read() ([]float32, error)
	Stop() error
	Close() error
}

// OpenFunc opens the capture device for one recording
type OpenFunc func() (Device, error)

// OpenDefault opens the default microphone at sampleRate
func OpenDefault(sampleRate int) OpenFunc {
	return func() (Device, error) {
		return audio.NewInput(sampleRate)
	}
}

// Config represents recorder configuration
type Config struct {
	MaxDuration time.Duration
}

// Recorder holds at most one captured clip at a time
type Recorder struct {
	open   OpenFunc
	config Config

	mu       sync.Mutex
	state    State
	clip     *audio.Clip
	stop     chan struct{}
	done     chan struct{}
	discard  bool
	lastErr  error
	captured func(*audio.Clip)
}

// NewRecorder creates an idle recorder. open may be nil when the host has
// no capture support; StartRecording then reports ErrDeviceUnavailable.
func NewRecorder(open OpenFunc, config Config) *Recorder {
	if config.MaxDuration <= 0 {
		config.MaxDuration = DefaultMaxDuration
	}
	return &Recorder{open: open, config: config}
}

// OnCaptured registers a callback for recordings that finish on their own
// (the duration limit or a device error).
func (r *Recorder) OnCaptured(f func(*audio.Clip)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = f
}

// State returns the recorder state
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StartRecording opens the device and begins capturing. A held clip is
// discarded first.
func (r *Recorder) StartRecording(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrRecording
	}
	if r.open == nil {
		return ErrDeviceUnavailable
	}

	dev, err := r.open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if dev == nil {
		return ErrDeviceUnavailable
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.clip = nil
	r.lastErr = nil
	r.discard = false
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.setState(StateRecording)

	go r.capture(ctx, dev, r.stop, r.done)
	return nil
}

// StopRecording finalizes the recording and returns the captured clip
func (r *Recorder) StopRecording() (*audio.Clip, error) {
	r.mu.Lock()
	switch r.state {
	case StateCaptured:
		clip := r.clip
		r.mu.Unlock()
		return clip, nil
	case StateIdle:
		err := r.lastErr
		r.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrNotRecording
	}
	done := r.signalStopLocked()
	r.mu.Unlock()

	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateCaptured {
		if r.lastErr != nil {
			return nil, r.lastErr
		}
		return nil, ErrEmptyRecording
	}
	return r.clip, nil
}

// Clear discards any recording, stopping capture if needed
func (r *Recorder) Clear() {
	r.mu.Lock()
	var done chan struct{}
	if r.state == StateRecording {
		r.discard = true
		done = r.signalStopLocked()
	}
	r.mu.Unlock()

	if done != nil {
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clip = nil
	r.setState(StateIdle)
}

// Take hands over the captured clip and returns to Idle
func (r *Recorder) Take() (*audio.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCaptured {
		return nil, ErrNoRecording
	}
	clip := r.clip
	r.clip = nil
	r.setState(StateIdle)
	return clip, nil
}

func (r *Recorder) signalStopLocked() chan struct{} {
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	return r.done
}

func (r *Recorder) capture(ctx context.Context, dev Device, stop, done chan struct{}) {
	rate := dev.SampleRate()
	maxSamples := int(int64(r.config.MaxDuration) * int64(rate) / int64(time.Second))
	samples := make([]float32, 0, rate)

	var readErr error
	auto := false

loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ctx.Done():
			break loop
		default:
		}

		frame, err := dev.Read()
		if err != nil {
			readErr = err
			auto = true
			break
		}

		room := maxSamples - len(samples)
		if len(frame) >= room {
			samples = append(samples, frame[:room]...)
			log.Printf("Recording reached the %v limit", r.config.MaxDuration)
			auto = true
			break
		}
		samples = append(samples, frame...)
	}

	if err := dev.Stop(); err != nil {
		log.Printf("Failed to stop capture device: %v", err)
	}
	if err := dev.Close(); err != nil {
		log.Printf("Failed to close capture device: %v", err)
	}

	clip, err := r.finalize(samples, rate, readErr)

	r.mu.Lock()
	var notify func(*audio.Clip)
	if auto && clip != nil && !r.discard {
		notify = r.captured
	}
	r.mu.Unlock()

	close(done)

	if err != nil {
		log.Printf("Recording failed: %v", err)
	}
	if notify != nil {
		notify(clip)
	}
}

func (r *Recorder) finalize(samples []float32, rate int, readErr error) (*audio.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}

	if r.discard {
		r.setState(StateIdle)
		return nil, nil
	}

	if len(samples) == 0 {
		if readErr != nil {
			r.lastErr = fmt.Errorf("capture failed: %w", readErr)
		} else {
			r.lastErr = ErrEmptyRecording
		}
		r.setState(StateIdle)
		return nil, r.lastErr
	}

	data, err := audio.EncodeWAV(samples, rate)
	if err != nil {
		r.lastErr = fmt.Errorf("failed to encode recording: %w", err)
		r.setState(StateIdle)
		return nil, r.lastErr
	}

	if readErr != nil {
		log.Printf("Capture ended early, keeping %d samples: %v", len(samples), readErr)
	}

	r.clip = audio.NewClip(data, audio.FormatWAV)
	r.setState(StateCaptured)
	return r.clip, nil
}

func (r *Recorder) setState(s State) {
	old := r.state
	r.state = s
	if old != s {
		log.Printf("Recorder changed: %s -> %s", old, s)
	}
}
