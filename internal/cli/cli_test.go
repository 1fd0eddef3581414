package cli

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"presentation-assistant/internal/config"
	"presentation-assistant/internal/conversation"
	"presentation-assistant/internal/deck"
)

func resetFlags(t *testing.T) {
	t.Helper()
	saved := []string{configPath, apiURL, language, deckName, backend, logFile}
	t.Cleanup(func() {
		configPath, apiURL, language, deckName, backend, logFile = saved[0], saved[1], saved[2], saved[3], saved[4], saved[5]
	})
	configPath, apiURL, language, deckName, backend, logFile = "", "", "", "", "", ""

	for _, key := range []string{config.EnvAPIURL, config.EnvLanguage, config.EnvDeck, config.EnvBackend} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Presentation.Language = "ky"
	cfg.Presentation.Deck = "budget"
	if err := config.WriteConfig(path, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	configPath = path
	apiURL = "http://flag.local/api"
	language = "ru"

	got, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if got.API.BaseURL != "http://flag.local/api" || got.Presentation.Language != "ru" {
		t.Errorf("flags not applied: %+v", got)
	}
	if got.Presentation.Deck != "budget" {
		t.Errorf("file value lost: deck = %q", got.Presentation.Deck)
	}
}

func TestLoadConfigRejectsBadBackendFlag(t *testing.T) {
	resetFlags(t)
	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	backend = "carrier-pigeon"

	if _, err := loadConfig(); err == nil {
		t.Error("Expected validation error")
	}
}

func TestBuildServicesHTTP(t *testing.T) {
	cfg := config.DefaultConfig()
	svc, err := buildServices(cfg)
	if err != nil {
		t.Fatalf("buildServices failed: %v", err)
	}
	if svc.deck == nil || svc.speech == nil || svc.asr == nil || svc.qa == nil || svc.narration == nil {
		t.Errorf("missing service: %+v", svc)
	}
	if got := svc.narration.AssetURL("ru", 3); got != "http://localhost:8000/audio/ru/slide_03.wav" {
		t.Errorf("AssetURL = %q", got)
	}
}

func TestBuildServicesOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Kind = config.BackendOpenAI
	cfg.Backend.OpenAI.APIKey = "sk-test"

	if _, err := buildServices(cfg); err != nil {
		t.Fatalf("buildServices failed: %v", err)
	}

	cfg.Backend.Kind = "grpc"
	if _, err := buildServices(cfg); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestPresenterConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Questions.TranscriptPolicy = config.PolicyAuto
	cfg.Presentation.SettleDelay = 250

	pc := presenterConfig(cfg)
	if pc.Policy != conversation.PolicyAuto {
		t.Errorf("policy = %q", pc.Policy)
	}
	if pc.SettleDelay.Milliseconds() != 250 {
		t.Errorf("settle = %v", pc.SettleDelay)
	}
}

func TestPrintDeck(t *testing.T) {
	d, err := deck.New("constitution", "ru", []deck.Slide{
		{ID: 1, Title: "Preamble", Content: "We, the people", Narration: "Narrated\npreamble"},
		{ID: 2, Title: "Article 1", Content: "Sovereign state"},
	})
	if err != nil {
		t.Fatalf("deck.New failed: %v", err)
	}

	var buf bytes.Buffer
	printDeck(&buf, d, true)
	out := buf.String()

	for _, want := range []string{"constitution [ru], 2 slides", "  1  Preamble", "Narrated preamble", "  2  Article 1", "Sovereign state"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a  b\n\tc", 10, "a b c"},
		{"Конституция Кыргызской Республики", 10, "Констит..."},
	}
	for _, tt := range tests {
		if got := oneLine(tt.in, tt.max); got != tt.want {
			t.Errorf("oneLine(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestRunSlides(t *testing.T) {
	resetFlags(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/slides" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(deck.SlidesResponse{
			Total:  1,
			Slides: []deck.Slide{{ID: 1, Title: "Preamble", Content: "We, the people"}},
		})
	}))
	defer server.Close()

	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	apiURL = server.URL + "/api"

	stdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	err := runSlides(slidesCmd, nil)
	w.Close()
	os.Stdout = stdout

	if err != nil {
		t.Fatalf("runSlides failed: %v", err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(r)
	if !strings.Contains(buf.String(), "Preamble") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestSetupLoggingToFile(t *testing.T) {
	resetFlags(t)
	logFile = filepath.Join(t.TempDir(), "presenter.log")

	closeLog, err := setupLogging(true)
	if err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	defer closeLog()

	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
