package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ShadowNews/internal/config"
	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
)

const (
	ttsCacheKeyPrefix = "tts_cache_"
	ttsCacheKeyRunes  = 50

	attributionSeparator = "\n\n---\n\n"
)

// ErrSpeechUnavailable is returned when no synthesizer is configured.
var ErrSpeechUnavailable = errors.New("speech synthesis unavailable")

// TTSCacheDeps wires the TTS cache.
type TTSCacheDeps struct {
	Store       ports.KeyValueStore
	Synthesizer ports.SpeechSynthesizer
	Repository  ports.ArticleRepository
	Voice       string
	TTL         time.Duration
	Logger      *slog.Logger
}

// TTSCache memoises generated speech URLs in a key-value store.
type TTSCache struct {
	store       ports.KeyValueStore
	synthesizer ports.SpeechSynthesizer
	repository  ports.ArticleRepository
	voice       string
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewTTSCache uses the 7-day TTL when deps.TTL is not positive.
func NewTTSCache(deps TTSCacheDeps) *TTSCache {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = config.DefaultAudioCacheTTL
	}
	return &TTSCache{
		store:       deps.Store,
		synthesizer: deps.Synthesizer,
		repository:  deps.Repository,
		voice:       deps.Voice,
		ttl:         ttl,
		logger:      logging.OrDiscard(deps.Logger).With("component", "tts_cache"),
		now:         time.Now,
	}
}

// TTSCacheKey derives the key from the first 50 characters of text.
// Texts sharing that prefix share an entry.
func TTSCacheKey(text string) string {
	runes := []rune(text)
	if len(runes) > ttsCacheKeyRunes {
		runes = runes[:ttsCacheKeyRunes]
	}
	return ttsCacheKeyPrefix + string(runes)
}

// IsValid reports whether entry is younger than the TTL at now. The bound is exclusive.
func (c *TTSCache) IsValid(entry domain.AudioCacheEntry, now time.Time) bool {
	return now.UnixMilli()-entry.Timestamp < c.ttl.Milliseconds()
}

// GetOrGenerate returns a cached audio URL for text or synthesizes a new one.
func (c *TTSCache) GetOrGenerate(ctx context.Context, text string) (string, error) {
	entry, err := c.getOrGenerate(ctx, text)
	if err != nil {
		return "", err
	}
	return entry.URL, nil
}

// GetOrGenerateForArticle speaks the article body and records the URL on the article.
func (c *TTSCache) GetOrGenerateForArticle(ctx context.Context, articleID string) (string, error) {
	if c.repository == nil {
		return "", errors.New("article repository is not configured")
	}
	article, err := c.repository.Get(ctx, articleID)
	if err != nil {
		return "", err
	}

	entry, err := c.getOrGenerate(ctx, SpeakableText(article.Content))
	if err != nil {
		return "", err
	}

	if article.AudioURL != entry.URL {
		cachedAt := time.UnixMilli(entry.Timestamp).UTC()
		patch := domain.AudioPatch{AudioURL: &entry.URL, AudioCachedAt: &cachedAt}
		if err := c.repository.PatchAudio(ctx, articleID, patch); err != nil {
			c.logger.Warn("audio url not recorded", "article_id", articleID, "error", err)
		}
	}
	return entry.URL, nil
}

// Clear drops the cached entry for text.
func (c *TTSCache) Clear(ctx context.Context, text string) error {
	return c.store.Remove(ctx, TTSCacheKey(text))
}

func (c *TTSCache) getOrGenerate(ctx context.Context, text string) (domain.AudioCacheEntry, error) {
	key := TTSCacheKey(text)
	now := c.now()

	if entry, ok := c.lookup(ctx, key); ok {
		if c.IsValid(entry, now) {
			c.logger.Debug("tts cache hit", "key", key)
			return entry, nil
		}
		c.logger.Debug("tts cache entry expired", "key", key, "age", now.Sub(time.UnixMilli(entry.Timestamp)))
		if err := c.store.Remove(ctx, key); err != nil {
			c.logger.Warn("stale tts entry not removed", "key", key, "error", err)
		}
	}

	if c.synthesizer == nil {
		return domain.AudioCacheEntry{}, ErrSpeechUnavailable
	}
	url, err := c.synthesizer.Synthesize(ctx, text, c.voice)
	if err != nil {
		return domain.AudioCacheEntry{}, fmt.Errorf("generate speech: %w", err)
	}

	entry := domain.AudioCacheEntry{URL: url, Timestamp: now.UnixMilli()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return domain.AudioCacheEntry{}, fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.logger.Warn("tts entry not cached", "key", key, "error", err)
	}
	return entry, nil
}

func (c *TTSCache) lookup(ctx context.Context, key string) (domain.AudioCacheEntry, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("tts cache read failed", "key", key, "error", err)
		return domain.AudioCacheEntry{}, false
	}
	if !ok {
		return domain.AudioCacheEntry{}, false
	}

	var entry domain.AudioCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.URL == "" {
		c.logger.Warn("corrupt tts cache entry dropped", "key", key)
		_ = c.store.Remove(ctx, key)
		return domain.AudioCacheEntry{}, false
	}
	return entry, true
}

// SpeakableText strips the attribution footer from stored article content.
func SpeakableText(content string) string {
	if i := strings.Index(content, attributionSeparator); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSpace(content)
}
