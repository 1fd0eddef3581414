package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrDeckLoad marks every failure to obtain a usable deck
var ErrDeckLoad = errors.New("deck load failed")

// LoadError describes why a deck could not be loaded
type LoadError struct {
	URL    string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to load slides from %s (status %d): %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("failed to load slides from %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDeckLoad) match any LoadError
func (e *LoadError) Is(target error) bool { return target == ErrDeckLoad }

// ErrorResponse is the presentation API error body
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SlidesResponse is the body of GET /slides
type SlidesResponse struct {
	Total  int     `json:"total"`
	Slides []Slide `json:"slides"`
}

// Client fetches decks from the presentation API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. http://localhost:8000/api)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Load fetches the ordered deck for a language. deckName may be empty to get
// the server's default deck.
func (c *Client) Load(ctx context.Context, language, deckName string) (*Deck, error) {
	q := url.Values{}
	q.Set("lang", language)
	if deckName != "" {
		q.Set("deck", deckName)
	}
	endpoint := c.baseURL + "/slides?" + q.Encode()

	var body SlidesResponse
	if status, err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, &LoadError{URL: endpoint, Status: status, Err: err}
	}

	d, err := New(deckName, language, body.Slides)
	if err != nil {
		return nil, &LoadError{URL: endpoint, Status: http.StatusOK, Err: err}
	}
	return d, nil
}

// Slide fetches a single slide by id
func (c *Client) Slide(ctx context.Context, id int) (Slide, error) {
	endpoint := c.baseURL + "/slides/" + strconv.Itoa(id)

	var s Slide
	if status, err := c.getJSON(ctx, endpoint, &s); err != nil {
		return Slide{}, &LoadError{URL: endpoint, Status: status, Err: err}
	}
	if s.ID < 1 {
		return Slide{}, &LoadError{URL: endpoint, Status: http.StatusOK, Err: fmt.Errorf("invalid slide id %d", s.ID)}
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return resp.StatusCode, errors.New(errResp.Detail)
		}
		return resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}
