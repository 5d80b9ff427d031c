package parser

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ShadowNews/internal/classify"
	"ShadowNews/internal/domain"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/scanner"
)

const dateLayout = "2006-01-02"

// HTMLScraper implements scanner.Scraper for any source described by a Profile.
type HTMLScraper struct {
	profile   Profile
	base      *url.URL
	client    *http.Client
	userAgent string
	logger    *slog.Logger
	now       func() time.Time
}

var _ scanner.Scraper = (*HTMLScraper)(nil)

// NewHTMLScraper wires an HTTP client; a nil client gets the default 10s timeout.
func NewHTMLScraper(profile Profile, client *http.Client, userAgent string, logger *slog.Logger) *HTMLScraper {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger = logging.OrDiscard(logger)
	if profile.MinTitleLen <= 0 {
		profile.MinTitleLen = defaultMinTitleLen
	}
	base, _ := url.Parse(profile.BaseURL)
	return &HTMLScraper{
		profile:   profile,
		base:      base,
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("source", string(profile.Source)),
		now:       time.Now,
	}
}

// Name identifies the scraper inside the registry.
func (s *HTMLScraper) Name() domain.Source {
	return s.profile.Source
}

// ListArticles fetches the listing page and returns up to limit unique summaries.
func (s *HTMLScraper) ListArticles(ctx context.Context, limit int) []domain.ScrapedArticleSummary {
	pg, err := fetchPage(ctx, s.client, s.userAgent, s.profile.ListingURL)
	if err != nil {
		s.logger.Warn("listing fetch failed", "url", s.profile.ListingURL, "error", err)
		return nil
	}

	name, candidates := scanner.FirstMatch(pg.doc, s.profile.Listing, func(selector string, found int) {
		s.logger.Debug("selector tried", "selector", selector, "elements", found)
	})

	useFallback := candidates == nil
	if useFallback {
		candidates = pg.doc.Find("a[href]")
		s.logger.Debug("no listing selector matched, scanning anchors", "anchors", candidates.Length())
	} else {
		s.logger.Debug("listing selector matched", "selector", name, "elements", candidates.Length())
	}

	out := make([]domain.ScrapedArticleSummary, 0)
	seen := map[string]bool{}

	candidates.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}

		summary, ok := s.summarize(el, useFallback)
		if !ok || seen[summary.URL] {
			return true
		}
		seen[summary.URL] = true
		out = append(out, summary)
		return true
	})

	s.logger.Debug("listing parsed", "articles", len(out), "fallback", useFallback)
	return out
}

func (s *HTMLScraper) summarize(el *goquery.Selection, fallback bool) (domain.ScrapedArticleSummary, bool) {
	href, ok := linkOf(el)
	if !ok {
		return domain.ScrapedArticleSummary{}, false
	}
	articleURL := resolveURL(s.base, href)
	if articleURL == "" {
		return domain.ScrapedArticleSummary{}, false
	}

	title := extractTitle(el)
	if len([]rune(title)) < s.profile.MinTitleLen {
		return domain.ScrapedArticleSummary{}, false
	}
	if fallback && !s.profile.Fallback.accepts(articleURL, title) {
		return domain.ScrapedArticleSummary{}, false
	}

	return domain.ScrapedArticleSummary{
		Title:             title,
		URL:               articleURL,
		Date:              s.extractDate(el, s.profile.DateSelectors),
		Level:             s.extractLevel(el, s.profile.LevelSelectors, articleURL),
		Category:          s.inferCategory(articleURL, title),
		Excerpt:           cleanText(el.Find("p").First().Text()),
		Source:            s.profile.Source,
		SourceAttribution: s.profile.Attribution,
	}, true
}

// FetchDetail downloads one article page and keeps at most two paragraphs of its body.
func (s *HTMLScraper) FetchDetail(ctx context.Context, articleURL string) *domain.ArticleDetail {
	pg, err := fetchPage(ctx, s.client, s.userAgent, articleURL)
	if err != nil {
		s.logger.Warn("detail fetch failed", "url", articleURL, "error", err)
		return nil
	}

	root := pg.doc.Selection
	title := firstText(root, s.profile.DetailTitle)

	paragraphs := collectParagraphs(root, s.profile.DetailParagraphs)
	if len(paragraphs) == 0 {
		paragraphs = readableParagraphs(pg.raw, pg.url)
		s.logger.Debug("paragraph selectors empty, used readability", "url", articleURL, "paragraphs", len(paragraphs))
	}
	if len(paragraphs) == 0 {
		s.logger.Warn("no paragraphs extracted", "url", articleURL)
		return nil
	}

	hints := []string{articleURL, title}
	if section := firstText(root, s.profile.DetailCategory); section != "" {
		hints = append([]string{section}, hints...)
	}

	return &domain.ArticleDetail{
		Title:    title,
		Content:  ComposeContent(paragraphs, s.profile.Attribution, articleURL),
		Date:     s.extractDate(root, s.profile.DateSelectors),
		Level:    s.extractLevel(root, s.profile.DetailLevel, articleURL),
		Category: s.inferCategory(hints...),
	}
}

func (s *HTMLScraper) extractDate(scope *goquery.Selection, selectors []string) string {
	for _, node := range []*goquery.Selection{scope, scope.Parent()} {
		if dt, ok := node.Find("time[datetime]").First().Attr("datetime"); ok {
			if d, ok := parseDate(dt); ok {
				return d
			}
		}
	}
	for _, sel := range selectors {
		node := scope.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if v, ok := node.Attr("datetime"); ok {
			if d, ok := parseDate(v); ok {
				return d
			}
		}
		if d, ok := parseDate(cleanText(node.Text())); ok {
			return d
		}
	}
	return s.now().Format(dateLayout)
}

func (s *HTMLScraper) extractLevel(scope *goquery.Selection, selectors []string, articleURL string) int {
	def := s.levelFromHints(articleURL)
	if len(selectors) == 0 || scope == nil {
		return def
	}
	label := firstText(scope, selectors)
	if label == "" && scope.Parent().Length() > 0 {
		label = firstText(scope.Parent(), selectors)
	}
	if label == "" {
		return def
	}
	return classify.Level(label, def)
}

func (s *HTMLScraper) levelFromHints(articleURL string) int {
	lower := strings.ToLower(articleURL)
	for _, h := range s.profile.LevelHints {
		if strings.Contains(lower, h.Fragment) {
			return domain.ClampLevel(h.Level)
		}
	}
	return domain.ClampLevel(s.profile.DefaultLevel)
}

// inferCategory checks URL hints on each value, then keyword rules, then the source default.
func (s *HTMLScraper) inferCategory(values ...string) domain.Category {
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, h := range s.profile.CategoryHints {
			if strings.Contains(lower, h.Fragment) {
				return h.Category
			}
		}
	}
	return classify.CategoryOr(strings.Join(values, " "), s.profile.DefaultCategory)
}

func (f AnchorFallback) accepts(articleURL, title string) bool {
	n := len([]rune(title))
	if f.MinTitle > 0 && n < f.MinTitle {
		return false
	}
	if f.MaxTitle > 0 && n > f.MaxTitle {
		return false
	}
	if len(f.URLContains) == 0 {
		return true
	}
	for _, fragment := range f.URLContains {
		if strings.Contains(articleURL, fragment) {
			return true
		}
	}
	return false
}
