package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SettleDelay() != time.Second {
		t.Errorf("SettleDelay = %v, want 1s", cfg.SettleDelay())
	}
	if cfg.MaxRecording() != 30*time.Second {
		t.Errorf("MaxRecording = %v, want 30s", cfg.MaxRecording())
	}
	if cfg.Questions.TranscriptPolicy != PolicyReview {
		t.Errorf("policy = %q, want review", cfg.Questions.TranscriptPolicy)
	}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Presentation.Language = "ky"
	cfg.Presentation.Deck = "constitution"
	cfg.Backend.OpenAI.APIKey = "sk-secret"

	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("API key must not be written to disk")
	}
	if cfg.Backend.OpenAI.APIKey != "sk-secret" {
		t.Error("WriteConfig must not modify its argument")
	}

	read, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if read.Presentation.Language != "ky" || read.Presentation.Deck != "constitution" {
		t.Errorf("unexpected presentation config: %+v", read.Presentation)
	}
}

func TestReadConfigKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("presentation:\n  language: ky\n"), 0644)

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Presentation.Language != "ky" {
		t.Errorf("language = %q", cfg.Presentation.Language)
	}
	if cfg.API.BaseURL != "http://localhost:8000/api" || cfg.Audio.SampleRate != 16000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestReadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("api: [unclosed"), 0644)
	if _, err := ReadConfig(bad); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvBackend, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://slides.local/api")
	t.Setenv(EnvLanguage, "ky")
	t.Setenv(EnvBackend, BackendOpenAI)
	t.Setenv(EnvOpenAIKey, "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://slides.local/api" || cfg.Presentation.Language != "ky" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Backend.Kind != BackendOpenAI || cfg.Backend.OpenAI.APIKey != "sk-test" {
		t.Errorf("backend env not applied: %+v", cfg.Backend)
	}
}

func TestApplyEnvIgnoresBlank(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(env(map[string]string{EnvAPIURL: "  ", EnvDeck: "budget"}))

	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("blank override applied: %q", cfg.API.BaseURL)
	}
	if cfg.Presentation.Deck != "budget" {
		t.Errorf("deck = %q", cfg.Presentation.Deck)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, "base_url"},
		{"empty language", func(c *Config) { c.Presentation.Language = " " }, "language"},
		{"negative settle", func(c *Config) { c.Presentation.SettleDelay = -1 }, "settle_delay"},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "sample_rate"},
		{"zero recording", func(c *Config) { c.Audio.MaxRecording = 0 }, "max_recording"},
		{"bad policy", func(c *Config) { c.Questions.TranscriptPolicy = "maybe" }, "transcript_policy"},
		{"bad backend", func(c *Config) { c.Backend.Kind = "grpc" }, "backend.kind"},
		{"openai without key", func(c *Config) { c.Backend.Kind = BackendOpenAI }, EnvOpenAIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
