package qa

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/tts"
)

// Backend names
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Model defaults for the openai backend
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 500
)

// MaxQuestionLength bounds a single question
const MaxQuestionLength = 2000

// Service validates questions, bounds the slide context and forwards to the
// configured answerer.
type Service struct {
	backend Answerer
	config  *Config
}

// Config represents QA service configuration
type Config struct {
	Backend          string
	BaseURL          string
	APIKey           string
	OpenAIBaseURL    string
	Model            string
	Temperature      float64
	MaxTokens        int
	MaxContextTokens int
	AllowGeneral     bool
	Timeout          time.Duration
}

// DefaultConfig returns default QA configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendHTTP,
		BaseURL:          "http://localhost:8000/api",
		Model:            DefaultModel,
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		MaxContextTokens: 1500,
		AllowGeneral:     true,
		Timeout:          60 * time.Second,
	}
}

// NewService creates the backend named by config. speech voices answers for
// the openai backend and is ignored by the http backend, whose server
// synthesizes answers itself.
func NewService(config *Config, speech tts.Synthesizer) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	var backend Answerer
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
		client := NewOpenAISDKClient(config.APIKey, speech, opts...)
		client.UpdateConfig(config.Model, config.Temperature, config.MaxTokens, config.AllowGeneral)
		backend = client
	default:
		return nil, fmt.Errorf("unknown QA backend: %s", config.Backend)
	}

	return NewServiceWithBackend(backend, config), nil
}

// NewServiceWithBackend wraps an existing answerer
func NewServiceWithBackend(backend Answerer, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{backend: backend, config: config}
}

// Answer validates the question and asks the backend
func (s *Service) Answer(ctx context.Context, q Question) (*Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if len(q.Text) > MaxQuestionLength {
		return nil, fmt.Errorf("question too long: %d characters (max %d)", len(q.Text), MaxQuestionLength)
	}
	q.SlideContext = TruncateToTokenLimit(q.SlideContext, s.config.MaxContextTokens)

	if _, ok := ctx.Deadline(); !ok && s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.backend.Answer(ctx, q)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return nil, fmt.Errorf("answer service returned an empty answer")
	}

	log.Printf("Answered slide %d question in %v (%d chars, audio=%t)",
		q.SlideID, time.Since(start).Round(time.Millisecond), len(resp.Answer), resp.Audio != "")
	return resp, nil
}

// EstimateTokens provides a rough estimate of token count for text
func EstimateTokens(text string) int {
	// ~4 bytes per token; Cyrillic runs closer to 2 characters per token
	return len(text) / 4
}

// TruncateToTokenLimit cuts text to roughly maxTokens, on a rune boundary.
// A non-positive limit disables truncation.
func TruncateToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}

	maxBytes := maxTokens*4 - 3
	cut := 0
	for i := range text {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return text[:cut] + "..."
}

var _ Answerer = (*Service)(nil)
