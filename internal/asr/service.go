package asr

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/audio"
)

// Backend names
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Service validates recordings and routes them to the configured backend
type Service struct {
	backend Transcriber
	config  *Config
}

// Config represents ASR service configuration
type Config struct {
	Backend       string
	BaseURL       string
	APIKey        string
	OpenAIBaseURL string
	Model         string
	Language      string
	Timeout       time.Duration
}

// DefaultConfig returns default ASR configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:  BackendHTTP,
		BaseURL:  "http://localhost:8000/api",
		Model:    ModelWhisper1,
		Language: "ru",
		Timeout:  60 * time.Second,
	}
}

// NewService creates the backend named by config and wraps it
func NewService(config *Config) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	var backend Transcriber
	switch config.Backend {
	case BackendHTTP, "":
		if config.BaseURL == "" {
			return nil, fmt.Errorf("API base URL is required")
		}
		backend = NewClientWithConfig(config.BaseURL, config.Timeout)
	case BackendOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		var opts []option.RequestOption
		if config.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(config.OpenAIBaseURL))
		}
		client := NewOpenAISDKASRClient(config.APIKey, opts...)
		client.SetModel(config.Model)
		backend = client
	default:
		return nil, fmt.Errorf("unknown ASR backend: %s", config.Backend)
	}

	return NewServiceWithBackend(backend, config), nil
}

// NewServiceWithBackend wraps an existing transcriber
func NewServiceWithBackend(backend Transcriber, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{backend: backend, config: config}
}

// Transcribe converts a clip into trimmed text. An empty language falls back
// to the configured one.
func (s *Service) Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error) {
	if clip.Empty() {
		return "", fmt.Errorf("no audio to transcribe")
	}
	if language == "" {
		language = s.config.Language
	}

	if _, ok := ctx.Deadline(); !ok && s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.backend.Transcribe(ctx, clip, language)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	log.Printf("Transcribed %s in %v: %q", clip, time.Since(start).Round(time.Millisecond), text)
	return text, nil
}

var _ Transcriber = (*Service)(nil)
