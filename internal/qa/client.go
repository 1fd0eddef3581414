// Package qa answers user questions about the current slide, returning the
// answer text together with synthesized speech.
package qa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"presentation-assistant/internal/audio"
)

// Answerer produces an answer for a question asked during a presentation
type Answerer interface {
	Answer(ctx context.Context, q Question) (*Response, error)
}

// Question is the body of POST /qa
type Question struct {
	Text         string `json:"question"`
	SlideContext string `json:"slide_context"`
	SlideID      int    `json:"slide_id"`
	Language     string `json:"language"`
}

// Response is the answer returned by POST /qa. Audio is base64 encoded and
// may be empty.
type Response struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Audio       string `json:"audio"`
	AudioFormat string `json:"audio_format"`
}

// DecodeAudio returns the answer speech as a clip, or nil when the response
// carried none.
func (r *Response) DecodeAudio() (*audio.Clip, error) {
	if strings.TrimSpace(r.Audio) == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(r.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode answer audio: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	return audio.NewClip(data, r.AudioFormat), nil
}

// ErrorResponse is the presentation API error body
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Client calls the presentation API's /qa endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(baseURL, 60*time.Second)
}

// NewClientWithConfig creates a client with a custom timeout
func NewClientWithConfig(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Answer posts the question and returns the raw answer
func (c *Client) Answer(ctx context.Context, q Question) (*Response, error) {
	reqBody, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/qa", bytes.NewReader(reqBody))
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
			return nil, fmt.Errorf("QA request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("QA request failed: %s", errorResp.Detail)
	}

	var answer Response
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &answer, nil
}

var _ Answerer = (*Client)(nil)
