package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"presentation-assistant/internal/audio"
)

// MaxTextLength is the longest text accepted for synthesis
const MaxTextLength = 4096

// Synthesizer turns text into a playable clip
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*audio.Clip, error)
}

// TTSClient calls the presentation API's /tts endpoint
type TTSClient struct {
	baseURL    string
	httpClient *http.Client
}

// TTSRequest is the body of POST /tts
type TTSRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// ErrorResponse is the presentation API error body
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewTTSClient creates a client for the API rooted at baseURL
func NewTTSClient(baseURL string) *TTSClient {
	return &TTSClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // TTS can take longer
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (c *TTSClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// ValidateText validates text for synthesis
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if len(text) > MaxTextLength {
		return fmt.Errorf("text too long: %d characters (max %d)", len(text), MaxTextLength)
	}

	return nil
}

// Synthesize converts text to speech and returns the audio clip
func (c *TTSClient) Synthesize(ctx context.Context, text, language string) (*audio.Clip, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(TTSRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/tts", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Detail == "" {
			return nil, fmt.Errorf("TTS request failed with status %d: %s",
				resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("TTS request failed: %s", errorResp.Detail)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("TTS response contained no audio")
	}

	return audio.NewClip(body, formatFromContentType(resp.Header.Get("Content-Type"))), nil
}

// formatFromContentType maps a response media type to a clip format.
// Unknown types are left empty so the clip sniffs its own bytes.
func formatFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return audio.FormatWAV
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return audio.FormatMP3
	default:
		return ""
	}
}

var _ Synthesizer = (*TTSClient)(nil)
