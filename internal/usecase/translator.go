package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ShadowNews/internal/config"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
)

const (
	defaultTranslatorPersona = "You are a professional translator."
	defaultTranslationTokens = 4000

	translationPrompt = "以下の英語の記事を自然な日本語に翻訳してください。\n" +
		"段落の構成はそのまま保ち、翻訳文のみを出力してください。\n\n%s"
)

// ErrTranslatorUnavailable is wrapped when no chat client is configured.
var ErrTranslatorUnavailable = errors.New("translator unavailable")

// TranslationError reports a failed or empty translation.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return "translation failed: " + e.Err.Error()
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// Translator renders English article text into Japanese through a chat model.
type Translator struct {
	client    ports.ChatTranslator
	persona   string
	maxTokens int
	logger    *slog.Logger
}

// NewTranslator accepts a nil client; every call then fails with TranslationError.
func NewTranslator(client ports.ChatTranslator, cfg config.LLMConfig, logger *slog.Logger) *Translator {
	persona := strings.TrimSpace(cfg.SystemPrompt)
	if persona == "" {
		persona = defaultTranslatorPersona
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultTranslationTokens
	}
	return &Translator{
		client:    client,
		persona:   persona,
		maxTokens: maxTokens,
		logger:    logging.OrDiscard(logger).With("component", "translator"),
	}
}

// Translate returns the Japanese rendering of text.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if t.client == nil {
		return "", &TranslationError{Err: ErrTranslatorUnavailable}
	}

	out, err := t.client.Complete(ctx, t.persona, fmt.Sprintf(translationPrompt, text), t.maxTokens)
	if err != nil {
		return "", &TranslationError{Err: err}
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &TranslationError{Err: errors.New("empty translation")}
	}
	return out, nil
}

// TranslateBatch translates sequentially. A failed item becomes "" so the
// result is always index-aligned with texts.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := t.Translate(ctx, text)
		if err != nil {
			t.logger.Warn("batch item not translated", "index", i, "error", err)
			continue
		}
		out[i] = translated
	}
	return out
}
