package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"presentation-assistant/internal/audio"
)

func TestTTSClientSynthesize(t *testing.T) {
	var got TTSRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/tts" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF....WAVEfmt "))
	}))
	defer server.Close()

	client := NewTTSClient(server.URL + "/api")
	clip, err := client.Synthesize(context.Background(), "Салам", "ky")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if got.Text != "Салам" || got.Language != "ky" {
		t.Errorf("unexpected request body: %+v", got)
	}
	if clip.Format != audio.FormatWAV || clip.Empty() {
		t.Errorf("unexpected clip: %s", clip)
	}
}

func TestTTSClientErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"detail":"TTS error: quota exceeded"}`)
	}))
	defer server.Close()

	_, err := NewTTSClient(server.URL).Synthesize(context.Background(), "hello", "ru")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Expected detail in error, got %v", err)
	}
}

func TestValidateText(t *testing.T) {
	if err := ValidateText(""); err == nil {
		t.Error("Expected error for empty text")
	}
	if err := ValidateText("   "); err == nil {
		t.Error("Expected error for blank text")
	}
	if err := ValidateText(strings.Repeat("a", MaxTextLength+1)); err == nil {
		t.Error("Expected error for text too long")
	}
	if err := ValidateText("Hello world"); err != nil {
		t.Errorf("Expected no error for valid text, got: %v", err)
	}
}

type countingSynth struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSynth) Synthesize(ctx context.Context, text, language string) (*audio.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return audio.NewClip([]byte(language+":"+text), audio.FormatWAV), nil
}

func TestTTSServiceCache(t *testing.T) {
	backend := &countingSynth{}
	service, err := NewTTSService(backend, DefaultTTSServiceConfig())
	if err != nil {
		t.Fatalf("NewTTSService failed: %v", err)
	}
	ctx := context.Background()

	first, err := service.Synthesize(ctx, "Article 1", "ru")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, _ := service.Synthesize(ctx, "Article 1", "ru")
	if first != second {
		t.Error("Expected cached clip for repeated text")
	}
	if _, err := service.Synthesize(ctx, "Article 1", "ky"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2 (language is part of the key)", backend.calls)
	}

	stats := service.GetCacheStats()
	if stats["entries"] != 2 || stats["hits"] != 1 {
		t.Errorf("unexpected cache stats: %v", stats)
	}
}

func TestTTSServiceCacheBounded(t *testing.T) {
	config := DefaultTTSServiceConfig()
	config.MaxCacheItems = 2
	service, _ := NewTTSService(&countingSynth{}, config)

	for _, text := range []string{"a", "b", "c", "d"} {
		if _, err := service.Synthesize(context.Background(), text, "ru"); err != nil {
			t.Fatalf("Synthesize failed: %v", err)
		}
	}
	if n := service.GetCacheStats()["entries"]; n != 2 {
		t.Errorf("entries = %v, want 2", n)
	}
}

func TestTTSServiceErrorNotCached(t *testing.T) {
	backend := &countingSynth{err: errors.New("down")}
	service, _ := NewTTSService(backend, DefaultTTSServiceConfig())

	for i := 0; i < 2; i++ {
		if _, err := service.Synthesize(context.Background(), "x", "ru"); err == nil {
			t.Fatal("Expected synthesis error")
		}
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, failures must not be cached", backend.calls)
	}
}

func TestNewTTSServiceRequiresBackend(t *testing.T) {
	if _, err := NewTTSService(nil, DefaultTTSServiceConfig()); err == nil {
		t.Error("Expected error without backend")
	}
}

func TestOptimizeTextForVoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Article 1** says  hello", "Article 1 says hello."},
		{"First\n\nSecond!", "First. Second!"},
		{"Is it `ok`?", "Is it ok?"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := optimizeTextForVoice(tt.in); got != tt.want {
			t.Errorf("optimizeTextForVoice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSynthesizeToFile(t *testing.T) {
	service, _ := NewTTSService(&countingSynth{}, DefaultTTSServiceConfig())
	path := filepath.Join(t.TempDir(), "out", "answer.wav")

	if err := service.SynthesizeToFile(context.Background(), "hi", "ru", path); err != nil {
		t.Fatalf("SynthesizeToFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "ru:hi" {
		t.Errorf("file content = %q", data)
	}

	if err := ValidateFilePath(""); err == nil {
		t.Error("Expected error for empty filename")
	}
	if err := SaveClip(nil, path); err == nil {
		t.Error("Expected error for empty clip")
	}
}

func TestOpenAISDKTTSClientConfiguration(t *testing.T) {
	client := NewOpenAISDKTTSClient("test-key")

	config := client.GetConfig()
	if config.Model != ModelTTS1 || config.Voice != VoiceAlloy || config.Speed != 1.0 {
		t.Errorf("unexpected defaults: %+v", config)
	}

	client.SetModel(ModelTTS1HD)
	client.SetVoice("female")
	client.SetSpeed(0.1)

	config = client.GetConfig()
	if config.Model != ModelTTS1HD {
		t.Errorf("Expected model %s, got %s", ModelTTS1HD, config.Model)
	}
	if config.Voice != VoiceNova {
		t.Errorf("Expected voice %s, got %s", VoiceNova, config.Voice)
	}
	if config.Speed != 0.25 {
		t.Errorf("Expected speed to be clamped to 0.25, got %.2f", config.Speed)
	}

	client.SetSpeed(5.0)
	if client.GetConfig().Speed != 4.0 {
		t.Errorf("Expected speed to be clamped to 4.0")
	}

	client.SetVoice("unknown")
	if client.GetConfig().Voice != VoiceAlloy {
		t.Error("Expected unknown voice to map to alloy")
	}
}

func TestOpenAISDKTTSClientLive(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping live TTS test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clip, err := NewOpenAISDKTTSClient(apiKey).Synthesize(ctx, "Hi", "en")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if clip.Empty() {
		t.Error("Expected audio data")
	}
}
