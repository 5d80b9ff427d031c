package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ShadowNews/internal/config"
	"ShadowNews/internal/ports"
)

// ErrNotConfigured is returned when no speech service base URL is set.
var ErrNotConfigured = errors.New("speech service not configured")

// Client talks to the hosted text-to-speech and transcription service.
type Client struct {
	baseURL            string
	apiKey             string
	model              string
	transcriptionModel string
	http               *http.Client
}

var _ ports.SpeechSynthesizer = (*Client)(nil)
var _ ports.Transcriber = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.SpeechConfig) *Client {
	return &Client{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		model:              cfg.Model,
		transcriptionModel: cfg.TranscriptionModel,
		http:               &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether a service endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Synthesize generates speech for text and returns the hosted audio URL.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := map[string]any{
		"model": c.model,
		"input": text,
		"voice": voice,
	}

	var resp struct {
		AudioURL string `json:"audioUrl"`
		URL      string `json:"url"`
	}
	if err := c.post(ctx, "/tts", payload, &resp); err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}

	audioURL := resp.AudioURL
	if audioURL == "" {
		audioURL = resp.URL
	}
	if audioURL == "" {
		return "", errors.New("synthesize: response has no audio url")
	}
	return audioURL, nil
}

// Transcribe converts hosted audio into text in the given language.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := map[string]any{
		"model":    c.transcriptionModel,
		"audioUrl": audioURL,
		"language": language,
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/transcribe", payload, &resp); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
