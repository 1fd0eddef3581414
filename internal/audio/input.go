package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	channels        = 1
	framesPerBuffer = 1024
)

// Input is the default microphone opened as a blocking PortAudio stream.
// It satisfies the recorder's capture device contract.
type Input struct {
	stream     *portaudio.Stream
	buffer     []float32
	sampleRate int
	mu         sync.Mutex
	started    bool
}

// NewInput opens the default capture device. It fails when no device is
// present or access is denied.
func NewInput(sampleRate int) (*Input, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if err := GetManager().Initialize(); err != nil {
		return nil, err
	}

	if !GetManager().HasInputDevice() {
		GetManager().Terminate()
		return nil, fmt.Errorf("no capture device available")
	}

	input := &Input{
		buffer:     make([]float32, framesPerBuffer),
		sampleRate: sampleRate,
	}

	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), framesPerBuffer, input.buffer)
	if err != nil {
		GetManager().Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}

	input.stream = stream
	return input, nil
}

// SampleRate returns the capture rate
func (i *Input) SampleRate() int {
	return i.sampleRate
}

// Start begins capturing
func (i *Input) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.started {
		return nil
	}
	if err := i.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	i.started = true
	return nil
}

// Read blocks for one buffer of samples
func (i *Input) Read() ([]float32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		return nil, fmt.Errorf("input stream not started")
	}

	if err := i.stream.Read(); err != nil {
		return nil, err
	}

	data := make([]float32, len(i.buffer))
	copy(data, i.buffer)
	return data, nil
}

// Stop pauses capturing, keeping the device open
func (i *Input) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		return nil
	}
	i.started = false
	return i.stream.Stop()
}

// Close releases the device
func (i *Input) Close() error {
	i.Stop()
	if i.stream != nil {
		i.stream.Close()
	}
	return GetManager().Terminate()
}
