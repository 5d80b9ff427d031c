package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ShadowNews/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatGPTClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewChatGPTClient(config.LLMConfig{
		Endpoint: server.URL,
		Model:    "test-model",
		APIKey:   "secret",
	})
	c.httpClient = server.Client()
	return c
}

func TestCompleteStringContent(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var body struct {
			Model     string    `json:"model"`
			MaxTokens int       `json:"max_tokens"`
			Messages  []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.MaxTokens != 500 || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request: %+v", body)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  こんにちは  "}}]}`))
	})

	got, err := c.Complete(context.Background(), "be a translator", "hello", 500)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "こんにちは" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestInvokeBlockContent(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":[
			{"type":"text","text":"first "},
			{"type":"image_url"},
			{"type":"text","text":"second"}
		]}}]}`))
	})

	resp, err := c.Invoke(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if _, ok := resp.Choices[0].Message.Content.(BlocksContent); !ok {
		t.Fatalf("expected block content, got %T", resp.Choices[0].Message.Content)
	}
	text, err := FirstText(resp)
	if err != nil {
		t.Fatalf("FirstText error: %v", err)
	}
	if text != "first second" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestCompleteEmptyChoice(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no choices":   `{"choices":[]}`,
		"null content": `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
		"blank text":   `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(payload))
			})
			if _, err := c.Complete(context.Background(), "", "hi", 0); !errors.Is(err, ErrEmptyChoice) {
				t.Fatalf("expected ErrEmptyChoice, got %v", err)
			}
		})
	}
}

func TestInvokeHTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := c.Invoke(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestInvokeMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewChatGPTClient(config.LLMConfig{})
	if _, err := c.Invoke(context.Background(), Request{}); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
