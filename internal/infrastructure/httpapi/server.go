// Package httpapi exposes the article query and job control endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ShadowNews/internal/domain"
	"ShadowNews/internal/infrastructure/scheduler"
	"ShadowNews/internal/infrastructure/speech"
	"ShadowNews/internal/infrastructure/storage"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
	"ShadowNews/internal/usecase"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CronControl is the part of the scheduler handle the API drives.
type CronControl interface {
	Status() []scheduler.JobStatus
	RunNow(ctx context.Context, name string) (scheduler.RunResult, error)
}

// ArticleAudio generates speech for stored articles.
type ArticleAudio interface {
	GetOrGenerateForArticle(ctx context.Context, articleID string) (string, error)
}

// OfflineAudio manages downloaded article audio.
type OfflineAudio interface {
	Supported() bool
	Download(ctx context.Context, articleID, remoteURL string, onProgress func(percent int)) string
	Delete(ctx context.Context, articleID string) error
	Size(articleID string) int64
	AudioURLForPlayback(article domain.Article, online bool) string
}

// Learning stores practice sessions.
type Learning interface {
	RecordSession(ctx context.Context, userID, articleID string, score, minutes float64) (domain.LearningRecord, error)
	Get(ctx context.Context, userID, articleID string) (*domain.LearningRecord, error)
	Reset(ctx context.Context, userID string) error
}

// Deps lists the collaborators behind the routes. Nil entries disable their routes' backing
// and answer 503.
type Deps struct {
	Articles    ports.ArticleRepository
	Cron        CronControl
	Audio       ArticleAudio
	Transcriber ports.Transcriber
	Offline     OfflineAudio
	Learning    Learning
	Logger      *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	deps   Deps
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: logging.OrDiscard(deps.Logger).With("component", "httpapi"),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleListArticles)
		r.Get("/articles/{articleID}", s.handleGetArticle)
		r.Post("/articles/{articleID}/audio", s.handleArticleAudio)
		r.Get("/articles/{articleID}/playback", s.handlePlayback)
		r.Post("/articles/{articleID}/download", s.handleDownload)
		r.Delete("/articles/{articleID}/download", s.handleDeleteDownload)
		r.Post("/transcriptions", s.handleTranscribe)

		r.Get("/cron/status", s.handleCronStatus)
		r.Post("/cron/{job}/run", s.handleCronRun)

		r.Route("/learning/{userID}", func(r chi.Router) {
			r.Delete("/", s.handleLearningReset)
			r.Get("/{articleID}", s.handleLearningGet)
			r.Post("/{articleID}", s.handleLearningRecord)
		})
	})

	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Articles == nil {
		writeError(w, http.StatusServiceUnavailable, "article store unavailable")
		return
	}

	q := r.URL.Query()
	filter := domain.ArticleFilter{
		Source:   domain.Source(q.Get("source")),
		Category: domain.Category(q.Get("category")),
		Limit:    defaultListLimit,
	}
	if filter.Source != "" && !filter.Source.Valid() {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}
	if filter.Category != "" && !filter.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	var ok bool
	if filter.Level, ok = intParam(q.Get("level"), 0, domain.MinLevel, domain.MaxLevel); !ok {
		writeError(w, http.StatusBadRequest, "level must be between 1 and 10")
		return
	}
	if filter.Limit, ok = intParam(q.Get("limit"), defaultListLimit, 1, maxListLimit); !ok {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	if filter.Offset, ok = intParam(q.Get("offset"), 0, 0, -1); !ok {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	articles, err := s.deps.Articles.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list articles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	if article, ok := s.loadArticle(w, r); ok {
		writeJSON(w, http.StatusOK, article)
	}
}

func (s *Server) handleArticleAudio(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audio == nil {
		writeError(w, http.StatusServiceUnavailable, "speech service unavailable")
		return
	}

	url, err := s.deps.Audio.GetOrGenerateForArticle(r.Context(), chi.URLParam(r, "articleID"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "article not found")
	case errors.Is(err, usecase.ErrSpeechUnavailable), errors.Is(err, speech.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "speech service unavailable")
	case err != nil:
		s.logger.Error("generate article audio", "error", err)
		writeError(w, http.StatusBadGateway, "speech generation failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"audioUrl": url})
	}
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	article, ok := s.loadArticle(w, r)
	if !ok {
		return
	}

	online := true
	if raw := r.URL.Query().Get("online"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "online must be a boolean")
			return
		}
		online = v
	}
	var url string
	if s.deps.Offline != nil {
		url = s.deps.Offline.AudioURLForPlayback(*article, online)
	} else if online {
		url = article.AudioURL
	}
	if url == "" {
		writeError(w, http.StatusNotFound, "no playable audio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Offline == nil || !s.deps.Offline.Supported() {
		writeError(w, http.StatusNotImplemented, "offline audio not supported")
		return
	}
	article, ok := s.loadArticle(w, r)
	if !ok {
		return
	}
	if article.AudioURL == "" {
		writeError(w, http.StatusConflict, "article has no generated audio")
		return
	}

	path := s.deps.Offline.Download(r.Context(), article.ArticleID, article.AudioURL, func(pct int) {
		s.logger.Debug("download progress", "article_id", article.ArticleID, "percent", pct)
	})
	if path == "" {
		writeError(w, http.StatusBadGateway, "download failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"localPath": path,
		"bytes":     s.deps.Offline.Size(article.ArticleID),
	})
}

func (s *Server) handleDeleteDownload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Offline == nil {
		writeError(w, http.StatusNotImplemented, "offline audio not supported")
		return
	}
	if err := s.deps.Offline.Delete(r.Context(), chi.URLParam(r, "articleID")); err != nil {
		s.logger.Error("delete offline audio", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete audio")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadArticle(w http.ResponseWriter, r *http.Request) (*domain.Article, bool) {
	if s.deps.Articles == nil {
		writeError(w, http.StatusServiceUnavailable, "article store unavailable")
		return nil, false
	}
	article, err := s.deps.Articles.Get(r.Context(), chi.URLParam(r, "articleID"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "article not found")
		return nil, false
	case err != nil:
		s.logger.Error("get article", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load article")
		return nil, false
	}
	return article, true
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription unavailable")
		return
	}

	var req struct {
		AudioURL string `json:"audioUrl"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AudioURL == "" {
		writeError(w, http.StatusBadRequest, "audioUrl is required")
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	text, err := s.deps.Transcriber.Transcribe(r.Context(), req.AudioURL, req.Language)
	switch {
	case errors.Is(err, speech.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "transcription unavailable")
	case err != nil:
		s.logger.Error("transcribe", "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

func (s *Server) handleCronStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cron == nil {
		writeJSON(w, http.StatusOK, []scheduler.JobStatus{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Cron.Status())
}

func (s *Server) handleCronRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cron == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler unavailable")
		return
	}

	result, err := s.deps.Cron.RunNow(r.Context(), chi.URLParam(r, "job"))
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("manual job run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":  false,
			"duration": result.Duration,
			"error":    err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleLearningRecord(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		writeError(w, http.StatusServiceUnavailable, "learning records unavailable")
		return
	}

	var req struct {
		Score   float64 `json:"score"`
		Minutes float64 `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes < 0 {
		writeError(w, http.StatusBadRequest, "invalid session")
		return
	}

	record, err := s.deps.Learning.RecordSession(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "articleID"), req.Score, req.Minutes)
	if err != nil {
		s.logger.Error("record session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record session")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleLearningGet(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		writeError(w, http.StatusServiceUnavailable, "learning records unavailable")
		return
	}

	record, err := s.deps.Learning.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "articleID"))
	switch {
	case err != nil:
		s.logger.Error("get learning record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load record")
	case record == nil:
		writeError(w, http.StatusNotFound, "no sessions recorded")
	default:
		writeJSON(w, http.StatusOK, record)
	}
}

func (s *Server) handleLearningReset(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		writeError(w, http.StatusServiceUnavailable, "learning records unavailable")
		return
	}

	if err := s.deps.Learning.Reset(r.Context(), chi.URLParam(r, "userID")); err != nil {
		s.logger.Error("reset learning", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// intParam parses an optional integer within [lo, hi]; hi < 0 means unbounded.
func intParam(raw string, def, lo, hi int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || (hi >= 0 && v > hi) {
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
