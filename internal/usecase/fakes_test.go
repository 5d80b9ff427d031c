package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/ports"
)

type fakeChat struct {
	mu    sync.Mutex
	calls int
	fn    func(user string) (string, error)
}

func (f *fakeChat) Complete(_ context.Context, _, user string, _ int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(user)
}

func echoChat() *fakeChat {
	return &fakeChat{fn: func(user string) (string, error) {
		return "訳: " + user[strings.LastIndex(user, "\n")+1:], nil
	}}
}

func failingChat() *fakeChat {
	return &fakeChat{fn: func(string) (string, error) {
		return "", errors.New("llm outage")
	}}
}

type memRepo struct {
	mu       sync.Mutex
	articles []domain.Article
	inserts  int
}

var _ ports.ArticleRepository = (*memRepo)(nil)

func (r *memRepo) FindBySourceURL(_ context.Context, sourceURL string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.articles {
		if r.articles[i].SourceURL == sourceURL {
			a := r.articles[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (r *memRepo) InsertIfAbsent(_ context.Context, article domain.Article) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	for _, a := range r.articles {
		if a.SourceURL == article.SourceURL {
			return false, nil
		}
	}
	r.articles = append(r.articles, article)
	return true, nil
}

func (r *memRepo) Get(_ context.Context, articleID string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.articles {
		if r.articles[i].ArticleID == articleID {
			a := r.articles[i]
			return &a, nil
		}
	}
	return nil, errors.New("article not found")
}

func (r *memRepo) List(_ context.Context, _ domain.ArticleFilter) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Article(nil), r.articles...), nil
}

func (r *memRepo) PatchAudio(_ context.Context, articleID string, patch domain.AudioPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.articles {
		if r.articles[i].ArticleID != articleID {
			continue
		}
		if patch.AudioURL != nil {
			r.articles[i].AudioURL = *patch.AudioURL
		}
		if patch.AudioCachedAt != nil {
			at := *patch.AudioCachedAt
			r.articles[i].AudioCachedAt = &at
		}
		if patch.LocalAudioPath != nil {
			r.articles[i].LocalAudioPath = *patch.LocalAudioPath
		}
		return nil
	}
	return errors.New("article not found")
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.articles)
}

type fakeScraper struct {
	name      domain.Source
	summaries []domain.ScrapedArticleSummary
	details   map[string]*domain.ArticleDetail
	detailHit map[string]int
	panicOn   string
}

func (s *fakeScraper) Name() domain.Source { return s.name }

func (s *fakeScraper) ListArticles(_ context.Context, limit int) []domain.ScrapedArticleSummary {
	if limit > 0 && len(s.summaries) > limit {
		return s.summaries[:limit]
	}
	return s.summaries
}

func (s *fakeScraper) FetchDetail(_ context.Context, url string) *domain.ArticleDetail {
	if s.detailHit == nil {
		s.detailHit = map[string]int{}
	}
	s.detailHit[url]++
	if url == s.panicOn {
		panic("selector exploded")
	}
	return s.details[url]
}

type fakeSpeech struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, voice string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/tts/" + voice + "/" + time.Now().Format("150405.000000000") + ".mp3", nil
}

type fakeNotifier struct {
	digests []string
	err     error
}

func (n *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return n.err
}
