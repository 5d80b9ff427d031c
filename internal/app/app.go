package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ShadowNews/internal/config"
	"ShadowNews/internal/infrastructure/httpapi"
	"ShadowNews/internal/infrastructure/kv"
	"ShadowNews/internal/infrastructure/llm"
	"ShadowNews/internal/infrastructure/parser"
	"ShadowNews/internal/infrastructure/scheduler"
	"ShadowNews/internal/infrastructure/speech"
	"ShadowNews/internal/infrastructure/storage"
	"ShadowNews/internal/infrastructure/telegram"
	"ShadowNews/internal/logging"
	"ShadowNews/internal/ports"
	"ShadowNews/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *scheduler.Handle
	server    *http.Server
	closers   []io.Closer
}

// New opens storage, builds adapters, and wires the use cases.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	repo, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open article store: %w", err)
	}
	a.closers = append(a.closers, repo)

	store := a.keyValueStore(ctx)

	var chat ports.ChatTranslator
	if cfg.LLM.APIKey != "" {
		chat = llm.NewChatGPTClient(cfg.LLM)
	} else {
		a.logger.Warn("no LLM api key, articles will be stored untranslated")
	}
	translator := usecase.NewTranslator(chat, cfg.LLM, baseLogger)

	registry := parser.NewRegistry(cfg.Fetch, baseLogger)
	scrapers := parser.ConfiguredScrapers(registry, cfg.Fetch.Sources, baseLogger.With("component", "source"))

	deps := usecase.PipelineDeps{
		Scrapers:   scrapers,
		Store:      usecase.NewArticleStore(repo, translator, baseLogger),
		Repository: repo,
		PerSource:  cfg.Fetch.PerSource,
		Logger:     baseLogger,
	}
	if notifier := telegram.NewNotifier(cfg.Notifications.Telegram); notifier != nil {
		deps.Notifier = notifier
	}
	a.pipeline = usecase.NewPipeline(deps)

	a.scheduler = scheduler.New(a.jobs(), cfg.Scheduler.Location(), baseLogger)

	speechClient := speech.NewClient(cfg.Speech)
	cacheDeps := usecase.TTSCacheDeps{
		Store:      store,
		Repository: repo,
		Voice:      cfg.Speech.Voice,
		TTL:        cfg.Cache.TTL,
		Logger:     baseLogger,
	}
	apiDeps := httpapi.Deps{
		Articles: repo,
		Cron:     a.scheduler,
		Offline:  usecase.NewOfflineAudio(cfg.Audio.Dir, repo, baseLogger),
		Learning: usecase.NewLearningRecords(store, baseLogger),
		Logger:   baseLogger,
	}
	if speechClient.Configured() {
		cacheDeps.Synthesizer = speechClient
		apiDeps.Transcriber = speechClient
	} else {
		a.logger.Warn("no speech service configured, audio generation disabled")
	}
	apiDeps.Audio = usecase.NewTTSCache(cacheDeps)

	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.New(apiDeps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the scheduler and HTTP server and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	a.scheduler.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	select {
	case <-a.scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("scheduled job still running at shutdown")
	}

	return runErr
}

// RunOnce executes a single fetch without starting the scheduler or server.
func (a *Application) RunOnce(ctx context.Context) usecase.RunReport {
	defer a.close()
	return a.pipeline.FetchAndStoreArticles(ctx)
}

func (a *Application) jobs() []scheduler.Job {
	runners := usecase.JobRunners(a.pipeline)

	jobs := make([]scheduler.Job, 0, len(a.cfg.Scheduler.Jobs))
	for _, jc := range a.cfg.Scheduler.Jobs {
		run, ok := runners[jc.Name]
		if !ok {
			a.logger.Warn("configured job has no runner", "job", jc.Name)
			continue
		}
		jobs = append(jobs, scheduler.Job{
			Name:     jc.Name,
			Schedule: jc.Schedule,
			Enabled:  jc.IsEnabled(),
			Run:      run,
		})
	}
	return jobs
}

func (a *Application) keyValueStore(ctx context.Context) ports.KeyValueStore {
	if a.cfg.Cache.Backend != "redis" {
		return kv.NewMemoryStore()
	}

	store, err := kv.NewRedisStore(ctx, kv.RedisOptions{
		Addr:     a.cfg.Cache.RedisAddr,
		Password: a.cfg.Cache.RedisPassword,
		DB:       a.cfg.Cache.RedisDB,
		Prefix:   "shadownews:",
	})
	if err != nil {
		a.logger.Warn("redis unavailable, using in-memory cache", "error", err)
		return kv.NewMemoryStore()
	}
	a.closers = append(a.closers, store)
	return store
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}
