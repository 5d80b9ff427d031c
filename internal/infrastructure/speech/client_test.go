package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ShadowNews/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(config.SpeechConfig{
		BaseURL:            server.URL + "/",
		APIKey:             "key",
		Model:              "tts-1",
		TranscriptionModel: "whisper-1",
	})
	c.http = server.Client()
	return c
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["input"] != "Hello there" || body["voice"] != "alloy" || body["model"] != "tts-1" {
			t.Errorf("unexpected payload %v", body)
		}
		_, _ = w.Write([]byte(`{"audioUrl":"https://cdn.example/a.mp3"}`))
	})

	url, err := c.Synthesize(context.Background(), "Hello there", "alloy")
	if err != nil || url != "https://cdn.example/a.mp3" {
		t.Fatalf("Synthesize = %q, %v", url, err)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"no url": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, handler)
			if _, err := c.Synthesize(context.Background(), "hi", "alloy"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/transcribe" || body["audioUrl"] != "https://cdn.example/rec.m4a" || body["language"] != "en" {
			t.Errorf("unexpected request %s %v", r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"text":" the quick brown fox \n"}`))
	})

	text, err := c.Transcribe(context.Background(), "https://cdn.example/rec.m4a", "en")
	if err != nil || text != "the quick brown fox" {
		t.Fatalf("Transcribe = %q, %v", text, err)
	}
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()

	c := NewClient(config.SpeechConfig{})
	if _, err := c.Synthesize(context.Background(), "hi", "alloy"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.Transcribe(context.Background(), "u", "en"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
