package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"presentation-assistant/internal/audio"
)

// maxUploadSize bounds a single recording upload
const maxUploadSize = 25 * 1024 * 1024 // 25MB

// Transcriber converts a recorded clip into text
type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error)
}

// Client calls the presentation API's /stt endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// TranscribeResponse is the body of a successful /stt call
type TranscribeResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is the presentation API error body
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(baseURL, 60*time.Second) // Longer timeout for audio processing
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

// Transcribe uploads the clip as multipart form data and returns the text
func (c *Client) Transcribe(ctx context.Context, clip *audio.Clip, language string) (string, error) {
	if clip.Empty() {
		return "", fmt.Errorf("audio data is empty")
	}
	if clip.Len() > maxUploadSize {
		return "", fmt.Errorf("data size %d bytes exceeds maximum allowed size of %d bytes", clip.Len(), maxUploadSize)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename, contentType := uploadName(clip.Format)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/stt", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Detail == "" {
			return "", fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("transcription failed: %s", errorResp.Detail)
	}

	var transcribeResp TranscribeResponse
	if err := json.Unmarshal(body, &transcribeResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return transcribeResp.Text, nil
}

// uploadName picks the multipart filename and media type for a clip format
func uploadName(format string) (string, string) {
	switch format {
	case audio.FormatMP3:
		return "recording.mp3", "audio/mpeg"
	default:
		return "recording.wav", "audio/wav"
	}
}

// ReadAudioFile loads a recording from disk, rejecting unsupported formats
func ReadAudioFile(path string) (*audio.Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".mp3" {
		return nil, fmt.Errorf("unsupported audio format: %s. Supported formats: [.wav .mp3]", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() > maxUploadSize {
		return nil, fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", info.Size(), maxUploadSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	return audio.NewClip(data, strings.TrimPrefix(ext, ".")), nil
}

var _ Transcriber = (*Client)(nil)
