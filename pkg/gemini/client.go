// Package gemini provides a Gemini-backed implementation of the engine's
// text-generation boundary.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent REST API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a Gemini client for the given model.
func New(apiKey, model string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		// Generation latency is on the order of seconds; callers bound each
		// request with their own context timeout on top of this ceiling.
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithBaseURL creates a client against a non-default endpoint (tests,
// proxies).
func NewWithBaseURL(baseURL, apiKey, model string) *Client {
	c := New(apiKey, model)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a prompt and returns the model's raw text reply. The reply
// may be arbitrary text; parsing is the caller's concern.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini generate read: %w", err)
	}

	var result generateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("gemini generate decode: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("gemini generate: api error %d: %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("gemini generate: status %d", resp.StatusCode)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: no candidates")
	}

	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
