package narration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/deck"
)

type fakeSynth struct {
	calls atomic.Int32
	text  string
	err   error
	// hook runs inside Synthesize, before it returns
	hook func()
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, language string) (*audio.Clip, error) {
	f.calls.Add(1)
	f.text = text
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return audio.NewClip([]byte("RIFF-synth"), audio.FormatWAV), nil
}

func fixedToken(v uint64) TokenFunc {
	return func() uint64 { return v }
}

func newAssetServer(t *testing.T, available map[string]bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !available[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF-asset"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAcquirePrefersAsset(t *testing.T) {
	server := newAssetServer(t, map[string]bool{"/audio/ru/slide_01.wav": true})
	synth := &fakeSynth{}
	service := NewService(Config{AssetBaseURL: server.URL}, synth)

	result, err := service.Acquire(context.Background(), deck.Slide{ID: 1, Content: "c"}, "ru", 1, fixedToken(1))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if result.Source != SourceAsset || string(result.Clip.Data) != "RIFF-asset" {
		t.Errorf("unexpected result: source=%s clip=%s", result.Source, result.Clip)
	}
	if synth.calls.Load() != 0 {
		t.Error("synthesis should not run when the asset exists")
	}
}

func TestAcquireFallsBackToSynthesis(t *testing.T) {
	server := newAssetServer(t, nil)
	synth := &fakeSynth{}
	service := NewService(Config{AssetBaseURL: server.URL}, synth)

	slide := deck.Slide{ID: 12, Content: "content", Narration: "narration script"}
	result, err := service.Acquire(context.Background(), slide, "ky", 4, fixedToken(4))
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if result.Source != SourceSynthesis || result.SlideID != 12 {
		t.Errorf("unexpected result: %+v", result)
	}
	if synth.text != "narration script" {
		t.Errorf("synthesized %q, want the narration script", synth.text)
	}
}

func TestAcquireBothFail(t *testing.T) {
	server := newAssetServer(t, nil)
	service := NewService(Config{AssetBaseURL: server.URL}, &fakeSynth{err: errors.New("tts down")})

	_, err := service.Acquire(context.Background(), deck.Slide{ID: 2, Content: "x"}, "ru", 1, fixedToken(1))
	if !errors.Is(err, ErrAudioUnavailable) {
		t.Fatalf("Expected ErrAudioUnavailable, got %v", err)
	}

	noSynth := NewService(Config{AssetBaseURL: server.URL}, nil)
	if _, err := noSynth.Acquire(context.Background(), deck.Slide{ID: 2}, "ru", 1, fixedToken(1)); !errors.Is(err, ErrAudioUnavailable) {
		t.Fatalf("Expected ErrAudioUnavailable without synthesizer, got %v", err)
	}
}

func TestAcquireCancelledBeforeStart(t *testing.T) {
	synth := &fakeSynth{}
	service := NewService(Config{AssetBaseURL: "http://127.0.0.1:0"}, synth)

	_, err := service.Acquire(context.Background(), deck.Slide{ID: 1}, "ru", 1, fixedToken(2))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if synth.calls.Load() != 0 {
		t.Error("no steps should run for a stale token")
	}
}

func TestAcquireCancelledAfterAsset(t *testing.T) {
	var token atomic.Uint64
	token.Store(1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A newer navigation lands while the asset lookup is in flight.
		token.Store(2)
		http.NotFound(w, r)
	}))
	defer server.Close()

	synth := &fakeSynth{}
	service := NewService(Config{AssetBaseURL: server.URL}, synth)

	_, err := service.Acquire(context.Background(), deck.Slide{ID: 1}, "ru", 1, token.Load)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if synth.calls.Load() != 0 {
		t.Error("synthesis should be skipped once the request is stale")
	}
}

func TestAcquireCancelledDuringSynthesis(t *testing.T) {
	server := newAssetServer(t, nil)

	var token atomic.Uint64
	token.Store(7)
	synth := &fakeSynth{hook: func() { token.Store(8) }}
	service := NewService(Config{AssetBaseURL: server.URL}, synth)

	_, err := service.Acquire(context.Background(), deck.Slide{ID: 3, Content: "x"}, "ru", 7, token.Load)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
}

func TestAssetURL(t *testing.T) {
	service := NewService(Config{AssetBaseURL: "http://host:8000/"}, nil)
	if got := service.AssetURL("ky", 3); got != "http://host:8000/audio/ky/slide_03.wav" {
		t.Errorf("AssetURL = %q", got)
	}
	if got := service.AssetURL("ru", 123); got != "http://host:8000/audio/ru/slide_123.wav" {
		t.Errorf("AssetURL = %q", got)
	}
}

func TestAssetOrigin(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8000/api":   "http://localhost:8000",
		"https://slides.example/api/": "https://slides.example",
		"/api":                        "",
	}
	for in, want := range tests {
		if got := AssetOrigin(in); got != want {
			t.Errorf("AssetOrigin(%q) = %q, want %q", in, got, want)
		}
	}
}
