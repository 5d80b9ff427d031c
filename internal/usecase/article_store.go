package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ShadowNews/internal/classify"
	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
)

// ArticleStore dedupes scraped articles by source URL and persists new ones.
type ArticleStore struct {
	repo       ports.ArticleRepository
	translator *Translator
	logger     *slog.Logger
	now        func() time.Time
}

// NewArticleStore wires the repository with a best-effort translator.
func NewArticleStore(repo ports.ArticleRepository, translator *Translator, logger *slog.Logger) *ArticleStore {
	return &ArticleStore{
		repo:       repo,
		translator: translator,
		logger:     logging.OrDiscard(logger).With("component", "article_store"),
		now:        time.Now,
	}
}

// UpsertIfNew stores the article unless its source URL is already known.
// Translation failures are logged and the article is stored untranslated.
func (s *ArticleStore) UpsertIfNew(ctx context.Context, summary domain.ScrapedArticleSummary, detail domain.ArticleDetail) (bool, error) {
	existing, err := s.repo.FindBySourceURL(ctx, summary.URL)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", summary.URL, err)
	}
	if existing != nil {
		s.logger.Info("article already exists", "url", summary.URL, "article_id", existing.ArticleID)
		return false, nil
	}

	now := s.now().UTC()
	article := buildArticle(summary, detail, now)

	if s.translator != nil {
		translated, err := s.translator.Translate(ctx, detail.Content)
		if err != nil {
			s.logger.Warn("storing article without translation", "url", summary.URL, "error", err)
		} else {
			article.Translation = &translated
		}
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, article)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", summary.URL, err)
	}
	if !inserted {
		s.logger.Info("article stored concurrently, skipped", "url", summary.URL)
	}
	return inserted, nil
}

// NewArticleID returns "{source}-{unix millis}-{6 random chars}".
func NewArticleID(source domain.Source, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", source, now.UnixMilli(), uuid.NewString()[:6])
}

func buildArticle(summary domain.ScrapedArticleSummary, detail domain.ArticleDetail, now time.Time) domain.Article {
	title := firstNonEmpty(detail.Title, summary.Title)

	category := detail.Category
	if !category.Valid() {
		category = summary.Category
	}
	if !category.Valid() {
		category = classify.CategoryOr(title+" "+summary.Excerpt, domain.CategoryCultureSociety)
	}

	level := detail.Level
	if level == 0 {
		level = summary.Level
	}

	return domain.Article{
		ArticleID:         NewArticleID(summary.Source, now),
		Title:             title,
		Content:           detail.Content,
		Category:          category,
		Level:             domain.ClampLevel(level),
		PublishedDate:     firstNonEmpty(detail.Date, summary.Date, now.Format("2006-01-02")),
		Source:            summary.Source,
		SourceURL:         summary.URL,
		SourceAttribution: summary.SourceAttribution,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
