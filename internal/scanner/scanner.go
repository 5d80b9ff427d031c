package scanner

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"ShadowNews/internal/domain"
)

// Scraper is the contract shared by every news source.
// Neither method returns an error: failures are logged and yield an empty result.
type Scraper interface {
	Name() domain.Source
	ListArticles(ctx context.Context, limit int) []domain.ScrapedArticleSummary
	FetchDetail(ctx context.Context, url string) *domain.ArticleDetail
}

// Strategy extracts listing candidates from a parsed document.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) *goquery.Selection
}

// SelectorStrategy builds a Strategy that matches a CSS selector.
func SelectorStrategy(selector string) Strategy {
	return Strategy{
		Name: selector,
		Extract: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(selector)
		},
	}
}

// FirstMatch runs strategies in order and returns the first non-empty result.
// The returned name is empty when nothing matched. observe, when set, receives
// every attempt with the number of elements found.
func FirstMatch(doc *goquery.Document, strategies []Strategy, observe func(name string, found int)) (string, *goquery.Selection) {
	for _, s := range strategies {
		sel := s.Extract(doc)
		found := 0
		if sel != nil {
			found = sel.Length()
		}
		if observe != nil {
			observe(s.Name, found)
		}
		if found > 0 {
			return s.Name, sel
		}
	}
	return "", nil
}

// Registry keeps a mapping from source names to their scrapers.
type Registry struct {
	scrapers map[domain.Source]Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[domain.Source]Scraper{}}
}

// Register adds or replaces a scraper implementation.
func (r *Registry) Register(s Scraper) {
	if r.scrapers == nil {
		r.scrapers = map[domain.Source]Scraper{}
	}
	r.scrapers[s.Name()] = s
}

// Resolve returns a scraper by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scraper, error) {
	if s, ok := r.scrapers[domain.Source(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scraper %s is not registered", name)
}

