package qa

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"presentation-assistant/internal/audio"
	"presentation-assistant/internal/tts"
)

// answerVoicer is a Synthesizer that tidies model output before speaking it
type answerVoicer interface {
	SynthesizeAnswer(ctx context.Context, answer, language string) (*audio.Clip, error)
}

// OpenAISDKClient answers questions with a chat completion and voices the
// answer with a Synthesizer, producing the same shape as POST /qa.
type OpenAISDKClient struct {
	client       openai.Client
	speech       tts.Synthesizer
	model        string
	temperature  float64
	maxTokens    int64
	allowGeneral bool
}

// NewOpenAISDKClient creates a new OpenAI SDK answerer. speech may be nil, in
// which case answers carry no audio.
func NewOpenAISDKClient(apiKey string, speech tts.Synthesizer, opts ...option.RequestOption) *OpenAISDKClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISDKClient{
		client:       openai.NewClient(opts...),
		speech:       speech,
		model:        DefaultModel,
		temperature:  DefaultTemperature,
		maxTokens:    DefaultMaxTokens,
		allowGeneral: true,
	}
}

// UpdateConfig sets model parameters; zero values keep the current setting
func (c *OpenAISDKClient) UpdateConfig(model string, temperature float64, maxTokens int, allowGeneral bool) {
	if model != "" {
		c.model = model
	}
	if temperature > 0 {
		c.temperature = temperature
	}
	if maxTokens > 0 {
		c.maxTokens = int64(maxTokens)
	}
	c.allowGeneral = allowGeneral
}

// Answer asks the model and synthesizes the reply
func (c *OpenAISDKClient) Answer(ctx context.Context, q Question) (*Response, error) {
	answer, ok := FactOverride(q.Text, q.Language)
	if !ok {
		var err error
		answer, err = c.complete(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	resp := &Response{Question: q.Text, Answer: answer}

	if c.speech != nil {
		clip, err := c.voice(ctx, answer, q.Language)
		if err != nil {
			// Text alone is still a usable answer
			log.Printf("Answer synthesis failed: %v", err)
			return resp, nil
		}
		resp.Audio = base64.StdEncoding.EncodeToString(clip.Data)
		resp.AudioFormat = clip.Format
	}

	return resp, nil
}

func (c *OpenAISDKClient) voice(ctx context.Context, answer, language string) (*audio.Clip, error) {
	if v, ok := c.speech.(answerVoicer); ok {
		return v.SynthesizeAnswer(ctx, answer, language)
	}
	return c.speech.Synthesize(ctx, answer, language)
}

func (c *OpenAISDKClient) complete(ctx context.Context, q Question) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(q.Language, c.allowGeneral)),
			openai.UserMessage(UserPrompt(q.Language, q.SlideContext, q.Text)),
		},
		Model:       c.model,
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	answer := strings.TrimSpace(completion.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("empty answer returned")
	}
	return answer, nil
}

var _ Answerer = (*OpenAISDKClient)(nil)
