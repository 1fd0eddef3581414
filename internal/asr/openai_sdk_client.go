package asr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/audio"
)

// ModelWhisper1 is the default OpenAI transcription model
const ModelWhisper1 = "whisper-1"

// OpenAISDKASRClient transcribes recordings with the OpenAI Whisper API
type OpenAISDKASRClient struct {
	client openai.Client
	model  string
}

// NewOpenAISDKASRClient creates a new OpenAI SDK ASR client
func NewOpenAISDKASRClient(apiKey string, opts ...option.RequestOption) *OpenAISDKASRClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISDKASRClient{
		client: openai.NewClient(opts...),
		model:  ModelWhisper1,
	}
}

// SetModel sets the transcription model
func (c *OpenAISDKASRClient) SetModel(model string) {
	if model != "" {
		c.model = model
	}
}

// Transcribe sends the clip to Whisper and returns the text
func (c *OpenAISDKASRClient) Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error) {
	if clip.Empty() {
		return "", fmt.Errorf("audio data is empty")
	}

	filename, contentType := uploadName(clip.Format)
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(clip.Data), filename, contentType),
		Model: openai.AudioModel(c.model),
	}

	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	transcription, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return transcription.Text, nil
}

var _ Transcriber = (*OpenAISDKASRClient)(nil)
