// Package config handles reading and writing the presenter config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend kinds
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Transcript policies
const (
	PolicyReview = "review"
	PolicyAuto   = "auto"
)

// Environment overrides
const (
	EnvAPIURL        = "PRESENTER_API_URL"
	EnvLanguage      = "PRESENTER_LANG"
	EnvDeck          = "PRESENTER_DECK"
	EnvBackend       = "PRESENTER_BACKEND"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// Config is the top-level structure of config.yaml.
type Config struct {
	Version      int                `yaml:"version"`
	API          APIConfig          `yaml:"api"`
	Presentation PresentationConfig `yaml:"presentation"`
	Audio        AudioConfig        `yaml:"audio"`
	Questions    QuestionsConfig    `yaml:"questions"`
	Backend      BackendConfig      `yaml:"backend"`
	Cache        CacheConfig        `yaml:"cache"`
}

// APIConfig points at the presentation API.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// PresentationConfig controls deck selection and playback.
type PresentationConfig struct {
	Language        string `yaml:"language"`
	Deck            string `yaml:"deck"`
	SettleDelay     int    `yaml:"settle_delay"` // ms
	PauseOnQuestion bool   `yaml:"pause_on_question"`
	AutoPlayAnswers bool   `yaml:"auto_play_answers"`
}

// AudioConfig controls the local audio devices.
type AudioConfig struct {
	SampleRate   int `yaml:"sample_rate"`
	MaxRecording int `yaml:"max_recording"` // seconds
}

// QuestionsConfig controls what happens to a spoken question.
type QuestionsConfig struct {
	TranscriptPolicy string `yaml:"transcript_policy"` // "review" | "auto"
}

// BackendConfig selects who transcribes, synthesizes and answers.
type BackendConfig struct {
	Kind   string       `yaml:"kind"` // "http" | "openai"
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig is used when Kind is "openai".
type OpenAIConfig struct {
	APIKey       string  `yaml:"api_key,omitempty"`
	BaseURL      string  `yaml:"base_url,omitempty"`
	ASRModel     string  `yaml:"asr_model"`
	TTSModel     string  `yaml:"tts_model"`
	Voice        string  `yaml:"voice"`
	Speed        float64 `yaml:"speed"`
	ChatModel    string  `yaml:"chat_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	AllowGeneral bool    `yaml:"allow_general"`
}

// CacheConfig controls the in-memory synthesis cache.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
}

const configDir = "presenter"
const configFile = "config.yaml"

// DefaultPath returns the config path under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, configDir, configFile), nil
}

// ReadConfig reads the config file at path.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to path, creating parent directories.
// The OpenAI key is never written.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out := *cfg
	out.Backend.OpenAI.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Load reads path if it exists, falls back to defaults when it does not,
// then applies environment overrides. Callers validate after applying their
// own overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		read, err := ReadConfig(path)
		switch {
		case err == nil:
			cfg = read
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 60,
		},
		Presentation: PresentationConfig{
			Language:        "ru",
			SettleDelay:     1000,
			PauseOnQuestion: true,
			AutoPlayAnswers: true,
		},
		Audio: AudioConfig{
			SampleRate:   16000,
			MaxRecording: 30,
		},
		Questions: QuestionsConfig{
			TranscriptPolicy: PolicyReview,
		},
		Backend: BackendConfig{
			Kind: BackendHTTP,
			OpenAI: OpenAIConfig{
				ASRModel:    "whisper-1",
				TTSModel:    "tts-1",
				Voice:       "female",
				Speed:       1.0,
				ChatModel:   "gpt-4o-mini",
				Temperature: 0.3,
				MaxTokens:   500,
			},
		},
		Cache: CacheConfig{
			Enabled:  true,
			MaxItems: 256,
		},
	}
}

// ApplyEnv overrides fields from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvLanguage)); v != "" {
		c.Presentation.Language = v
	}
	if v := strings.TrimSpace(getenv(EnvDeck)); v != "" {
		c.Presentation.Deck = v
	}
	if v := strings.TrimSpace(getenv(EnvBackend)); v != "" {
		c.Backend.Kind = v
	}
	if v := strings.TrimSpace(getenv(EnvOpenAIKey)); v != "" {
		c.Backend.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvOpenAIBaseURL)); v != "" {
		c.Backend.OpenAI.BaseURL = v
	}
}

// Validate checks that the config can drive a session.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if strings.TrimSpace(c.Presentation.Language) == "" {
		return fmt.Errorf("presentation.language is required")
	}
	if c.Presentation.SettleDelay < 0 {
		return fmt.Errorf("presentation.settle_delay must not be negative")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Audio.MaxRecording <= 0 {
		return fmt.Errorf("audio.max_recording must be positive")
	}

	switch c.Questions.TranscriptPolicy {
	case PolicyReview, PolicyAuto:
	default:
		return fmt.Errorf("unknown questions.transcript_policy %q", c.Questions.TranscriptPolicy)
	}

	switch c.Backend.Kind {
	case BackendHTTP:
	case BackendOpenAI:
		if c.Backend.OpenAI.APIKey == "" {
			return fmt.Errorf("backend %q needs %s", BackendOpenAI, EnvOpenAIKey)
		}
	default:
		return fmt.Errorf("unknown backend.kind %q", c.Backend.Kind)
	}

	return nil
}

// SettleDelay returns the pause between a finished clip and the next slide.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Presentation.SettleDelay) * time.Millisecond
}

// MaxRecording returns the recording length limit.
func (c *Config) MaxRecording() time.Duration {
	return time.Duration(c.Audio.MaxRecording) * time.Second
}

// Timeout returns the per-request timeout for remote services.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}
