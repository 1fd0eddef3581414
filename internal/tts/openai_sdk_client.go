package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/audio"
)

// Available TTS models
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// Available voices
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAISDKTTSClient synthesizes speech directly with the OpenAI speech API
type OpenAISDKTTSClient struct {
	client openai.Client
	model  string
	voice  string
	speed  float64
}

// TTSConfig represents TTS configuration
type TTSConfig struct {
	Model string  `json:"model" yaml:"model"`
	Voice string  `json:"voice" yaml:"voice"`
	Speed float64 `json:"speed" yaml:"speed"`
}

// NewOpenAISDKTTSClient creates a new OpenAI SDK TTS client. Extra request
// options (base URL, HTTP client) are passed through to the SDK.
func NewOpenAISDKTTSClient(apiKey string, opts ...option.RequestOption) *OpenAISDKTTSClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISDKTTSClient{
		client: openai.NewClient(opts...),
		model:  ModelTTS1,
		voice:  VoiceAlloy,
		speed:  1.0,
	}
}

// SetModel sets the TTS model
func (c *OpenAISDKTTSClient) SetModel(model string) {
	c.model = model
}

// SetVoice sets the TTS voice, mapping generic names onto OpenAI voices
func (c *OpenAISDKTTSClient) SetVoice(voice string) {
	c.voice = convertVoiceToOpenAI(voice)
}

// SetSpeed sets the TTS speed (0.25 to 4.0)
func (c *OpenAISDKTTSClient) SetSpeed(speed float64) {
	if speed < 0.25 {
		speed = 0.25
	} else if speed > 4.0 {
		speed = 4.0
	}
	c.speed = speed
}

// GetConfig returns current TTS configuration
func (c *OpenAISDKTTSClient) GetConfig() TTSConfig {
	return TTSConfig{
		Model: c.model,
		Voice: c.voice,
		Speed: c.speed,
	}
}

// Synthesize converts text to a WAV clip. The speech API picks the spoken
// language from the text itself, so language is informational only.
func (c *OpenAISDKTTSClient) Synthesize(ctx context.Context, text, language string) (*audio.Clip, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat("wav"),
	}
	if c.speed != 1.0 {
		params.Speed = openai.Float(c.speed)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}

	return audio.NewClip(data, audio.FormatWAV), nil
}

// convertVoiceToOpenAI converts voice names to OpenAI format
func convertVoiceToOpenAI(voice string) string {
	voiceMap := map[string]string{
		VoiceAlloy:   VoiceAlloy,
		VoiceEcho:    VoiceEcho,
		VoiceFable:   VoiceFable,
		VoiceOnyx:    VoiceOnyx,
		VoiceNova:    VoiceNova,
		VoiceShimmer: VoiceShimmer,
		"female":     VoiceNova,
		"male":       VoiceOnyx,
		"neutral":    VoiceAlloy,
	}

	if openaiVoice, exists := voiceMap[voice]; exists {
		return openaiVoice
	}
	return VoiceAlloy
}

var _ Synthesizer = (*OpenAISDKTTSClient)(nil)
