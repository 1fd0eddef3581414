package cli

import (
	"fmt"
	"log"
	"net/http"

	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/asr"
	"presentation-assistant/internal/config"
	"presentation-assistant/internal/conversation"
	"presentation-assistant/internal/deck"
	"presentation-assistant/internal/narration"
	"presentation-assistant/internal/qa"
	"presentation-assistant/internal/session"
	"presentation-assistant/internal/tts"
)

// services are the remote collaborators built from config
type services struct {
	deck      *deck.Client
	speech    *tts.TTSService
	asr       *asr.Service
	qa        *qa.Service
	narration *narration.Service
}

func buildServices(cfg *config.Config) (*services, error) {
	speechBackend, err := newSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	speechConfig := tts.DefaultTTSServiceConfig()
	speechConfig.CacheEnabled = cfg.Cache.Enabled
	if cfg.Cache.MaxItems > 0 {
		speechConfig.MaxCacheItems = cfg.Cache.MaxItems
	}
	if cfg.API.Timeout > 0 {
		speechConfig.DefaultTimeout = cfg.API.Timeout
	}

	speech, err := tts.NewTTSService(speechBackend, speechConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS service: %w", err)
	}

	openai := cfg.Backend.OpenAI

	asrService, err := asr.NewService(&asr.Config{
		Backend:       cfg.Backend.Kind,
		BaseURL:       cfg.API.BaseURL,
		APIKey:        openai.APIKey,
		OpenAIBaseURL: openai.BaseURL,
		Model:         openai.ASRModel,
		Language:      cfg.Presentation.Language,
		Timeout:       cfg.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ASR service: %w", err)
	}

	qaConfig := qa.DefaultConfig()
	qaConfig.Backend = cfg.Backend.Kind
	qaConfig.BaseURL = cfg.API.BaseURL
	qaConfig.APIKey = openai.APIKey
	qaConfig.OpenAIBaseURL = openai.BaseURL
	qaConfig.Model = openai.ChatModel
	qaConfig.Temperature = openai.Temperature
	qaConfig.MaxTokens = openai.MaxTokens
	qaConfig.AllowGeneral = openai.AllowGeneral
	qaConfig.Timeout = cfg.Timeout()

	qaService, err := qa.NewService(qaConfig, speech)
	if err != nil {
		return nil, fmt.Errorf("failed to create QA service: %w", err)
	}

	narrationConfig := narration.DefaultConfig()
	narrationConfig.AssetBaseURL = narration.AssetOrigin(cfg.API.BaseURL)

	deckClient := deck.NewClient(cfg.API.BaseURL)
	deckClient.SetHTTPClient(&http.Client{Timeout: cfg.Timeout()})

	return &services{
		deck:      deckClient,
		speech:    speech,
		asr:       asrService,
		qa:        qaService,
		narration: narration.NewService(narrationConfig, speech),
	}, nil
}

func newSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	switch cfg.Backend.Kind {
	case config.BackendHTTP:
		client := tts.NewTTSClient(cfg.API.BaseURL)
		client.SetHTTPClient(&http.Client{Timeout: cfg.Timeout()})
		return client, nil
	case config.BackendOpenAI:
		openai := cfg.Backend.OpenAI
		var opts []option.RequestOption
		if openai.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(openai.BaseURL))
		}
		client := tts.NewOpenAISDKTTSClient(openai.APIKey, opts...)
		client.SetModel(openai.TTSModel)
		client.SetVoice(openai.Voice)
		if openai.Speed > 0 {
			client.SetSpeed(openai.Speed)
		}
		voice := client.GetConfig()
		log.Printf("OpenAI speech: model=%s voice=%s speed=%.2f", voice.Model, voice.Voice, voice.Speed)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend.Kind)
	}
}

func presenterConfig(cfg *config.Config) session.Config {
	return session.Config{
		Language:        cfg.Presentation.Language,
		Deck:            cfg.Presentation.Deck,
		SettleDelay:     cfg.SettleDelay(),
		PauseOnQuestion: cfg.Presentation.PauseOnQuestion,
		AutoPlayAnswers: cfg.Presentation.AutoPlayAnswers,
		Policy:          conversation.Policy(cfg.Questions.TranscriptPolicy),
	}
}
