package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Player plays one clip at a time on an AudioOutput and reports natural
// completion through a callback. Starting a new clip interrupts the old one
// without firing its callback.
type Player struct {
	output  *AudioOutput
	decoder *AudioDecoder

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer opens the default output device at the given rate
func NewPlayer(sampleRate int) (*Player, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	output, err := NewAudioOutput(sampleRate)
	if err != nil {
		return nil, err
	}
	return &Player{output: output, decoder: NewAudioDecoder()}, nil
}

// Play decodes the clip and starts it in the background. onEnded runs only
// if the clip plays to the end.
func (p *Player) Play(clip *Clip, onEnded func()) error {
	samples, err := p.decoder.DecodeForDevice(clip, p.output.SampleRate())
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", clip, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		err := p.output.PlaySamples(ctx, samples)
		// done is closed before the callback so the callback may start or
		// stop playback itself.
		close(done)
		switch {
		case err == nil:
			if onEnded != nil {
				onEnded()
			}
		case errors.Is(err, context.Canceled), errors.Is(err, ErrInterrupted):
		default:
			log.Printf("Playback failed: %v", err)
		}
	}()

	return nil
}

// Pause holds the current clip
func (p *Player) Pause() {
	p.output.Pause()
}

// Resume continues the held clip, reporting false if there is none
func (p *Player) Resume() bool {
	return p.output.Resume()
}

// Stop interrupts playback and waits for the stream to settle
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

// Close stops playback and releases the device
func (p *Player) Close() error {
	p.Stop()
	return p.output.Close()
}
