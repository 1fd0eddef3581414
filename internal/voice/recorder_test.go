package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presentation-assistant/internal/audio"
)

type fakeDevice struct {
	mu       sync.Mutex
	rate     int
	frame    int
	reads    int
	failAt   int
	startErr error
	started  bool
	closed   bool
}

func (d *fakeDevice) SampleRate() int { return d.rate }

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	return nil
}

func (d *fakeDevice) Read() ([]float32, error) {
	d.mu.Lock()
	d.reads++
	n := d.reads
	d.mu.Unlock()

	if d.failAt > 0 && n >= d.failAt {
		return nil, errors.New("device unplugged")
	}
	time.Sleep(time.Millisecond)
	frame := make([]float32, d.frame)
	for i := range frame {
		frame[i] = 0.1
	}
	return frame, nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func opener(d *fakeDevice) OpenFunc {
	return func() (Device, error) { return d, nil }
}

func waitForReads(t *testing.T, d *fakeDevice, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		reads := d.reads
		d.mu.Unlock()
		if reads >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("device was not read %d times", n)
}

func TestRecordStopTake(t *testing.T) {
	dev := &fakeDevice{rate: 16000, frame: 160}
	rec := NewRecorder(opener(dev), Config{})

	if err := rec.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if rec.State() != StateRecording {
		t.Fatalf("state = %s, want Recording", rec.State())
	}
	if err := rec.StartRecording(context.Background()); !errors.Is(err, ErrRecording) {
		t.Errorf("second StartRecording = %v, want ErrRecording", err)
	}

	waitForReads(t, dev, 3)

	clip, err := rec.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if clip.Format != audio.FormatWAV || clip.Empty() {
		t.Errorf("unexpected clip: %s", clip)
	}
	if rec.State() != StateCaptured {
		t.Errorf("state = %s, want Captured", rec.State())
	}
	if !dev.isClosed() {
		t.Error("device should be released after recording")
	}

	samples, rate, err := audio.NewAudioDecoder().DecodeClip(clip)
	if err != nil {
		t.Fatalf("DecodeClip failed: %v", err)
	}
	if rate != 16000 || len(samples) < 3*160 {
		t.Errorf("decoded %d samples at %d Hz", len(samples), rate)
	}

	taken, err := rec.Take()
	if err != nil || taken != clip {
		t.Fatalf("Take = (%v, %v)", taken, err)
	}
	if rec.State() != StateIdle {
		t.Errorf("state after Take = %s, want Idle", rec.State())
	}
	if _, err := rec.Take(); !errors.Is(err, ErrNoRecording) {
		t.Errorf("second Take = %v, want ErrNoRecording", err)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	tests := []struct {
		name string
		open OpenFunc
	}{
		{"no opener", nil},
		{"open fails", func() (Device, error) { return nil, errors.New("permission denied") }},
		{"start fails", opener(&fakeDevice{rate: 16000, startErr: errors.New("busy")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder(tt.open, Config{})
			if err := rec.StartRecording(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
				t.Errorf("StartRecording = %v, want ErrDeviceUnavailable", err)
			}
			if rec.State() != StateIdle {
				t.Errorf("state = %s, want Idle", rec.State())
			}
		})
	}
}

func TestMaxDurationAutoFinalizes(t *testing.T) {
	dev := &fakeDevice{rate: 1000, frame: 30}
	rec := NewRecorder(opener(dev), Config{MaxDuration: 100 * time.Millisecond})

	captured := make(chan *audio.Clip, 1)
	rec.OnCaptured(func(c *audio.Clip) { captured <- c })

	if err := rec.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	var clip *audio.Clip
	select {
	case clip = <-captured:
	case <-time.After(2 * time.Second):
		t.Fatal("recording did not finalize at the duration limit")
	}

	samples, _, err := audio.NewAudioDecoder().DecodeClip(clip)
	if err != nil {
		t.Fatalf("DecodeClip failed: %v", err)
	}
	if len(samples) != 100 {
		t.Errorf("captured %d samples, want exactly 100", len(samples))
	}

	stopped, err := rec.StopRecording()
	if err != nil || stopped != clip {
		t.Errorf("StopRecording after auto-finalize = (%v, %v)", stopped, err)
	}
}

func TestNewRecordingDiscardsHeldClip(t *testing.T) {
	dev := &fakeDevice{rate: 16000, frame: 160}
	rec := NewRecorder(opener(dev), Config{})

	rec.StartRecording(context.Background())
	waitForReads(t, dev, 1)
	first, err := rec.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	dev.mu.Lock()
	before := dev.reads
	dev.mu.Unlock()

	if err := rec.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording over a held clip failed: %v", err)
	}
	waitForReads(t, dev, before+1)
	second, err := rec.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	if first == second {
		t.Error("expected a fresh clip")
	}
	taken, _ := rec.Take()
	if taken != second {
		t.Error("only the newest clip should be held")
	}
}

func TestClear(t *testing.T) {
	dev := &fakeDevice{rate: 16000, frame: 160}
	rec := NewRecorder(opener(dev), Config{})

	rec.StartRecording(context.Background())
	waitForReads(t, dev, 1)
	rec.Clear()

	if rec.State() != StateIdle {
		t.Errorf("state after Clear = %s, want Idle", rec.State())
	}
	if _, err := rec.Take(); !errors.Is(err, ErrNoRecording) {
		t.Errorf("Take after Clear = %v, want ErrNoRecording", err)
	}
	if _, err := rec.StopRecording(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("StopRecording after Clear = %v, want ErrNotRecording", err)
	}
}

func TestDeviceErrorWithoutSamples(t *testing.T) {
	dev := &fakeDevice{rate: 16000, frame: 160, failAt: 1}
	rec := NewRecorder(opener(dev), Config{})

	rec.StartRecording(context.Background())
	waitForReads(t, dev, 1)

	deadline := time.Now().Add(2 * time.Second)
	for rec.State() == StateRecording && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if _, err := rec.StopRecording(); err == nil {
		t.Error("Expected capture error")
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %s, want Idle", rec.State())
	}
}

func TestContextCancelStopsCapture(t *testing.T) {
	dev := &fakeDevice{rate: 16000, frame: 160}
	rec := NewRecorder(opener(dev), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	rec.StartRecording(ctx)
	waitForReads(t, dev, 2)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for rec.State() == StateRecording && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if rec.State() != StateCaptured {
		t.Errorf("state = %s, want Captured", rec.State())
	}
}
