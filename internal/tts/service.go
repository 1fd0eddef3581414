package tts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"presentation-assistant/internal/audio"
)

// TTSService wraps a Synthesizer with a session-scoped in-memory cache keyed
// by language and text. Nothing is persisted.
type TTSService struct {
	backend Synthesizer
	config  TTSServiceConfig
	mu      sync.RWMutex
	cache   map[cacheKey]*audio.Clip
	hits    int
	misses  int
}

type cacheKey struct {
	language string
	text     string
}

// TTSServiceConfig represents TTS service configuration
type TTSServiceConfig struct {
	CacheEnabled   bool `json:"cache_enabled" yaml:"cache_enabled"`
	MaxCacheItems  int  `json:"max_cache_items" yaml:"max_cache_items"`
	DefaultTimeout int  `json:"default_timeout_seconds" yaml:"default_timeout_seconds"`
}

// DefaultTTSServiceConfig returns default TTS service configuration
func DefaultTTSServiceConfig() TTSServiceConfig {
	return TTSServiceConfig{
		CacheEnabled:   true,
		MaxCacheItems:  256,
		DefaultTimeout: 60,
	}
}

// NewTTSService creates a caching service around backend
func NewTTSService(backend Synthesizer, config TTSServiceConfig) (*TTSService, error) {
	if backend == nil {
		return nil, fmt.Errorf("TTS backend is required")
	}

	return &TTSService{
		backend: backend,
		config:  config,
		cache:   make(map[cacheKey]*audio.Clip),
	}, nil
}

// Synthesize converts text to speech, serving repeats from the cache
func (s *TTSService) Synthesize(ctx context.Context, text, language string) (*audio.Clip, error) {
	if err := ValidateText(text); err != nil {
		return nil, fmt.Errorf("text validation failed: %w", err)
	}

	key := cacheKey{language: language, text: text}
	if s.config.CacheEnabled {
		if clip := s.getCached(key); clip != nil {
			return clip, nil
		}
	}

	if _, ok := ctx.Deadline(); !ok && s.config.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.DefaultTimeout)*time.Second)
		defer cancel()
	}

	clip, err := s.backend.Synthesize(ctx, text, language)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	if s.config.CacheEnabled {
		s.store(key, clip)
	}
	return clip, nil
}

// SynthesizeAnswer cleans up answer text for speech before synthesizing it
func (s *TTSService) SynthesizeAnswer(ctx context.Context, answer, language string) (*audio.Clip, error) {
	return s.Synthesize(ctx, optimizeTextForVoice(answer), language)
}

// SynthesizeToFile converts text to speech and saves it to filename
func (s *TTSService) SynthesizeToFile(ctx context.Context, text, language, filename string) error {
	if err := ValidateFilePath(filename); err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}

	clip, err := s.Synthesize(ctx, text, language)
	if err != nil {
		return err
	}

	if err := SaveClip(clip, filename); err != nil {
		return fmt.Errorf("failed to save audio file: %w", err)
	}

	log.Printf("TTS audio saved to: %s", filename)
	return nil
}

// GetCacheStats returns cache statistics
func (s *TTSService) GetCacheStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalSize := 0
	for _, clip := range s.cache {
		totalSize += clip.Len()
	}

	return map[string]interface{}{
		"enabled":     s.config.CacheEnabled,
		"entries":     len(s.cache),
		"total_bytes": totalSize,
		"hits":        s.hits,
		"misses":      s.misses,
	}
}

func (s *TTSService) getCached(key cacheKey) *audio.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, ok := s.cache[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return clip
}

func (s *TTSService) store(key cacheKey, clip *audio.Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Full cache: drop an arbitrary entry. Sessions are short.
	if s.config.MaxCacheItems > 0 && len(s.cache) >= s.config.MaxCacheItems {
		for k := range s.cache {
			delete(s.cache, k)
			break
		}
	}
	s.cache[key] = clip
}

func optimizeTextForVoice(text string) string {
	text = strings.TrimSpace(text)

	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}

	for strings.Contains(text, "\n\n") {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}

	// Newlines read better as sentence breaks
	text = strings.ReplaceAll(text, "\n", ". ")

	// Markdown markers are read out literally by most voices
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "`", "")
	text = strings.ReplaceAll(text, "#", "")

	text = strings.TrimSpace(text)
	if text != "" && !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") &&
		!strings.HasSuffix(text, "?") {
		text += "."
	}

	return text
}

var _ Synthesizer = (*TTSService)(nil)
