package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
	"ShadowNews/internal/scanner"
)

// DefaultPerSource is how many listing entries are processed per source.
const DefaultPerSource = 10

// PipelineDeps wires all driven adapters into the fetch pipeline.
type PipelineDeps struct {
	Scrapers   []scanner.Scraper
	Store      *ArticleStore
	Repository ports.ArticleRepository
	Notifier   ports.Notifier
	PerSource  int
	Logger     *slog.Logger
}

// Pipeline implements the article-ingestion workflow.
type Pipeline struct {
	scrapers   []scanner.Scraper
	store      *ArticleStore
	repository ports.ArticleRepository
	notifier   ports.Notifier
	perSource  int
	logger     *slog.Logger
}

// RunReport summarises one fetch run.
type RunReport struct {
	Listed   int
	Inserted int
	Skipped  int
	Failed   int
	Duration time.Duration
}

type articleOutcome int

const (
	outcomeInserted articleOutcome = iota
	outcomeSkipped
)

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	perSource := deps.PerSource
	if perSource <= 0 {
		perSource = DefaultPerSource
	}
	return &Pipeline{
		scrapers:   deps.Scrapers,
		store:      deps.Store,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		perSource:  perSource,
		logger:     logging.OrDiscard(deps.Logger).With("component", "pipeline"),
	}
}

// FetchAndStoreArticles scrapes every configured source in order and stores
// new articles one at a time. It never fails: every error is logged and
// counted in the report.
func (p *Pipeline) FetchAndStoreArticles(ctx context.Context) (report RunReport) {
	start := time.Now()
	p.logger.Info("fetch started", "sources", len(p.scrapers), "per_source", p.perSource)

	var fresh []domain.ScrapedArticleSummary
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("fetch aborted", "panic", r)
		}
		report.Duration = time.Since(start)
		p.logger.Info("fetch finished",
			"listed", report.Listed,
			"inserted", report.Inserted,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"duration", report.Duration,
		)
		p.publish(ctx, fresh)
	}()

	for _, scraper := range p.scrapers {
		if ctx.Err() != nil {
			p.logger.Warn("fetch cancelled", "error", ctx.Err())
			return report
		}

		summaries := scraper.ListArticles(ctx, p.perSource)
		p.logger.Info("source listed", "source", scraper.Name(), "articles", len(summaries))
		report.Listed += len(summaries)

		for _, summary := range summaries {
			outcome, err := p.processArticle(ctx, scraper, summary)
			switch {
			case err != nil:
				report.Failed++
				p.logger.Error("article failed", "source", scraper.Name(), "url", summary.URL, "error", err)
			case outcome == outcomeInserted:
				report.Inserted++
				fresh = append(fresh, summary)
				p.logger.Info("article stored", "source", scraper.Name(), "title", summary.Title)
			default:
				report.Skipped++
			}
		}
	}

	return report
}

func (p *Pipeline) processArticle(ctx context.Context, scraper scanner.Scraper, summary domain.ScrapedArticleSummary) (outcome articleOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if p.repository != nil {
		existing, err := p.repository.FindBySourceURL(ctx, summary.URL)
		if err != nil {
			return outcomeSkipped, fmt.Errorf("lookup: %w", err)
		}
		if existing != nil {
			p.logger.Debug("article already stored", "url", summary.URL)
			return outcomeSkipped, nil
		}
	}

	detail := scraper.FetchDetail(ctx, summary.URL)
	if detail == nil || strings.TrimSpace(detail.Content) == "" {
		p.logger.Warn("article has no content, skipped", "source", scraper.Name(), "url", summary.URL)
		return outcomeSkipped, nil
	}

	if p.store == nil {
		return outcomeSkipped, fmt.Errorf("article store is not configured")
	}
	inserted, err := p.store.UpsertIfNew(ctx, summary, *detail)
	if err != nil {
		return outcomeSkipped, err
	}
	if !inserted {
		return outcomeSkipped, nil
	}
	return outcomeInserted, nil
}

func (p *Pipeline) publish(ctx context.Context, fresh []domain.ScrapedArticleSummary) {
	if p.notifier == nil || len(fresh) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(fresh)); err != nil {
		p.logger.Warn("digest not delivered", "error", err)
	}
}

// buildDigestMessage renders the run summary as Telegram MarkdownV2.
func buildDigestMessage(summaries []domain.ScrapedArticleSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d new articles*\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(&b, "\\- [%s](%s) %s\n",
			markdownEscaper.Replace(s.Title),
			markdownURLEscaper.Replace(s.URL),
			markdownEscaper.Replace(fmt.Sprintf("(%s, level %d)", s.Source, s.Level)),
		)
	}
	return b.String()
}

var (
	markdownEscaper = strings.NewReplacer(
		`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
		"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
		"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
	)
	markdownURLEscaper = strings.NewReplacer(`\`, `\\`, ")", `\)`)
)
