package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ShadowNews/internal/config"
	"ShadowNews/internal/ports"
)

// ErrEmptyChoice is returned when the service answers without a usable choice.
var ErrEmptyChoice = errors.New("llm returned no usable choice")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat mirrors the OpenAI response_format option.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is the invoke contract.
type Request struct {
	Messages       []Message
	MaxTokens      int
	ResponseFormat *ResponseFormat
}

// Choice is one returned completion.
type Choice struct {
	Message struct {
		Role    string
		Content Content
	}
}

// Response holds the decoded choices.
type Response struct {
	Choices []Choice
}

// ChatGPTClient talks to an OpenAI-compatible chat-completions endpoint.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ChatTranslator = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Invoke sends a chat-completion request and decodes the choices.
func (c *ChatGPTClient) Invoke(ctx context.Context, in Request) (Response, error) {
	if c == nil {
		return Response{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return Response{}, fmt.Errorf("chatgpt client misconfigured")
	}

	payload := map[string]any{
		"model":    c.model,
		"messages": in.Messages,
	}
	if in.MaxTokens > 0 {
		payload["max_tokens"] = in.MaxTokens
	}
	if in.ResponseFormat != nil {
		payload["response_format"] = in.ResponseFormat
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("invoke chatgpt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Response{}, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var wire struct {
		Choices []struct {
			Message struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Response{}, fmt.Errorf("decode chatgpt response: %w", err)
	}

	out := Response{Choices: make([]Choice, 0, len(wire.Choices))}
	for _, wc := range wire.Choices {
		content, err := decodeContent(wc.Message.Content)
		if err != nil {
			return Response{}, err
		}
		var choice Choice
		choice.Message.Role = wc.Message.Role
		choice.Message.Content = content
		out.Choices = append(out.Choices, choice)
	}
	return out, nil
}

// Complete runs a system+user exchange and returns the first choice's text.
func (c *ChatGPTClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := c.Invoke(ctx, Request{
		Messages: []Message{
			{Role: "system", Content: safePrompt(system, c.systemPrompt)},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return FirstText(resp)
}

// FirstText extracts the first choice's message text.
func FirstText(resp Response) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoice
	}
	text := strings.TrimSpace(ContentText(resp.Choices[0].Message.Content))
	if text == "" {
		return "", ErrEmptyChoice
	}
	return text, nil
}

func safePrompt(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		return prompt
	}
	fallback = strings.TrimSpace(fallback)
	if fallback != "" {
		return fallback
	}
	return "You are a helpful assistant."
}
