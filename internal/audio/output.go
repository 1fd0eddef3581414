package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// ErrInterrupted is returned by PlaySamples when Stop cut playback short
var ErrInterrupted = errors.New("playback interrupted")

// AudioOutput is a callback-driven PortAudio output stream
type AudioOutput struct {
	stream      *portaudio.Stream
	samples     []float32
	position    int
	finished    bool
	interrupted bool
	paused      bool
	mu          sync.Mutex
	sampleRate  int
}

// NewAudioOutput opens the default output device
func NewAudioOutput(sampleRate int) (*AudioOutput, error) {
	if err := GetManager().Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audio manager: %w", err)
	}

	output := &AudioOutput{
		finished:   true,
		sampleRate: sampleRate,
	}

	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, output.audioCallback)
	if err != nil {
		GetManager().Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}

	output.stream = stream
	return output, nil
}

// audioCallback fills the device buffer; paused or interrupted output is silence
func (ao *AudioOutput) audioCallback(out []float32) {
	ao.mu.Lock()
	defer ao.mu.Unlock()

	if ao.interrupted || ao.paused {
		for i := range out {
			out[i] = 0.0
		}
		if ao.interrupted {
			ao.finished = true
		}
		return
	}

	for i := range out {
		if ao.position < len(ao.samples) {
			out[i] = ao.samples[ao.position]
			ao.position++
		} else {
			out[i] = 0.0
			ao.finished = true
		}
	}
}

// SampleRate returns the device rate
func (ao *AudioOutput) SampleRate() int {
	return ao.sampleRate
}

// PlaySamples plays decoded samples and blocks until they finish, the
// context is cancelled or Stop is called.
func (ao *AudioOutput) PlaySamples(ctx context.Context, samples []float32) error {
	if len(samples) == 0 {
		return fmt.Errorf("no audio samples to play")
	}

	ao.mu.Lock()
	ao.samples = make([]float32, len(samples))
	copy(ao.samples, samples)
	ao.position = 0
	ao.finished = false
	ao.interrupted = false
	ao.paused = false
	ao.mu.Unlock()

	if err := ao.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer ao.stream.Stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ao.Stop()
			return ctx.Err()
		case <-ticker.C:
			ao.mu.Lock()
			finished, interrupted := ao.finished, ao.interrupted
			ao.mu.Unlock()

			if interrupted {
				return ErrInterrupted
			}
			if finished {
				return nil
			}
		}
	}
}

// Pause holds the current position, emitting silence
func (ao *AudioOutput) Pause() {
	ao.mu.Lock()
	defer ao.mu.Unlock()
	ao.paused = true
}

// Resume continues a paused clip. It reports false when nothing is left to resume.
func (ao *AudioOutput) Resume() bool {
	ao.mu.Lock()
	defer ao.mu.Unlock()
	ao.paused = false
	return !ao.finished && !ao.interrupted && ao.position < len(ao.samples)
}

// Stop interrupts the current playback
func (ao *AudioOutput) Stop() {
	ao.mu.Lock()
	defer ao.mu.Unlock()
	ao.interrupted = true
	ao.finished = true
}

// Close releases the output stream
func (ao *AudioOutput) Close() error {
	if ao.stream != nil {
		if err := ao.stream.Close(); err != nil {
			return fmt.Errorf("failed to close audio stream: %w", err)
		}
	}

	return GetManager().Terminate()
}
