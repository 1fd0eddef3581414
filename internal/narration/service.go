// Package narration fetches the spoken audio for a slide: a pre-rendered
// asset when the server has one, otherwise on-demand synthesis.
package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/tts"
)

var (
	// ErrCancelled means a newer request superseded this one
	ErrCancelled = errors.New("narration request superseded")
	// ErrAudioUnavailable means neither the asset nor synthesis produced audio
	ErrAudioUnavailable = errors.New("narration audio unavailable")
)

// Source tells where a clip came from
type Source int

const (
	SourceAsset Source = iota
	SourceSynthesis
)

func (s Source) String() string {
	switch s {
	case SourceAsset:
		return "asset"
	case SourceSynthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

// Result is acquired narration for one slide
type Result struct {
	SlideID int
	Clip    *audio.Clip
	Source  Source
}

// TokenFunc reports the caller's current request token
type TokenFunc func() uint64

// Config represents narration service configuration
type Config struct {
	// AssetBaseURL is the origin that serves /audio/{lang}/slide_NN.wav
	AssetBaseURL string
	AssetTimeout time.Duration
}

// DefaultConfig returns default narration configuration
func DefaultConfig() Config {
	return Config{
		AssetBaseURL: "http://localhost:8000",
		AssetTimeout: 15 * time.Second,
	}
}

// AssetOrigin derives the asset origin from an API base URL such as
// http://localhost:8000/api.
func AssetOrigin(apiBaseURL string) string {
	u, err := url.Parse(apiBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(apiBaseURL, "/"), "/api")
	}
	return u.Scheme + "://" + u.Host
}

// Service acquires narration. It has no side effects; committing the result
// is the caller's job.
type Service struct {
	config     Config
	httpClient *http.Client
	speech     tts.Synthesizer
}

// NewService creates a narration service. speech is the fallback synthesizer.
func NewService(config Config, speech tts.Synthesizer) *Service {
	return &Service{
		config: config,
		httpClient: &http.Client{
			Timeout: config.AssetTimeout,
		},
		speech: speech,
	}
}

// AssetURL returns the pre-rendered narration URL for a slide
func (s *Service) AssetURL(language string, slideID int) string {
	return fmt.Sprintf("%s/audio/%s/slide_%02d.wav",
		strings.TrimRight(s.config.AssetBaseURL, "/"), url.PathEscape(language), slideID)
}

// Acquire returns narration for slide. token is the caller's request token;
// whenever current() no longer equals it the remaining steps are skipped and
// ErrCancelled is returned.
func (s *Service) Acquire(ctx context.Context, slide deck.Slide, language string, token uint64, current TokenFunc) (*Result, error) {
	stale := func() bool { return current != nil && current() != token }

	if stale() {
		return nil, ErrCancelled
	}

	clip, assetErr := s.fetchAsset(ctx, language, slide.ID)
	if stale() {
		return nil, ErrCancelled
	}
	if assetErr == nil {
		return &Result{SlideID: slide.ID, Clip: clip, Source: SourceAsset}, nil
	}
	log.Printf("Narration asset for slide %d unavailable, synthesizing: %v", slide.ID, assetErr)

	if s.speech == nil {
		return nil, fmt.Errorf("%w: slide %d: asset: %v; no synthesizer configured", ErrAudioUnavailable, slide.ID, assetErr)
	}

	clip, synthErr := s.speech.Synthesize(ctx, slide.SpeakText(), language)
	if stale() {
		return nil, ErrCancelled
	}
	if synthErr != nil {
		return nil, fmt.Errorf("%w: slide %d: asset: %v; synthesis: %v", ErrAudioUnavailable, slide.ID, assetErr, synthErr)
	}

	return &Result{SlideID: slide.ID, Clip: clip, Source: SourceSynthesis}, nil
}

func (s *Service) fetchAsset(ctx context.Context, language string, slideID int) (*audio.Clip, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.AssetURL(language, slideID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("asset is empty")
	}

	format := audio.DetectFormat(data)
	if format == audio.FormatUnknown {
		format = audio.FormatWAV
	}
	return audio.NewClip(data, format), nil
}
