package ports

import (
	"context"

	"ShadowNews/internal/domain"
)

// ArticleRepository persists canonical articles; source URLs are unique.
type ArticleRepository interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*domain.Article, error)
	// InsertIfAbsent stores the article unless one with the same source URL exists.
	// It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, article domain.Article) (bool, error)
	Get(ctx context.Context, articleID string) (*domain.Article, error)
	List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	PatchAudio(ctx context.Context, articleID string, patch domain.AudioPatch) error
}

// ChatTranslator turns prompt messages into a single completion text.
type ChatTranslator interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// SpeechSynthesizer generates hosted audio for a text.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// Transcriber converts hosted audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, language string) (string, error)
}

// KeyValueStore is string-valued persistence; Get returns ok=false for missing keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
