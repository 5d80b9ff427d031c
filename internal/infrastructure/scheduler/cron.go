package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ShadowNews/internal/logging"
)

// ErrJobNotFound is returned by RunNow for names that are not configured.
var ErrJobNotFound = errors.New("job not found")

// Job is one recurring unit of work.
type Job struct {
	Name     string
	Schedule string
	Enabled  bool
	Run      func(ctx context.Context) error
}

// JobStatus describes a configured job; Running means currently registered, not mid-execution.
type JobStatus struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Enabled  bool   `json:"enabled"`
	Running  bool   `json:"running"`
}

// RunResult is returned by a manual trigger.
type RunResult struct {
	Success  bool    `json:"success"`
	Duration float64 `json:"duration"`
}

// Handle owns the cron registrations for a fixed job table.
type Handle struct {
	jobs   []Job
	loc    *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string][]cron.EntryID
}

// New builds a stopped handle. A nil location means UTC.
func New(jobs []Job, loc *time.Location, logger *slog.Logger) *Handle {
	if loc == nil {
		loc = time.UTC
	}
	return &Handle{
		jobs:    jobs,
		loc:     loc,
		logger:  logging.OrDiscard(logger).With("component", "scheduler"),
		entries: make(map[string][]cron.EntryID),
	}
}

// Start registers every enabled job with a valid schedule.
// Calling Start twice without Stop registers each job twice.
func (h *Handle) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cron == nil {
		h.cron = cron.New(cron.WithLocation(h.loc))
		h.cron.Start()
	}

	runCtx := context.WithoutCancel(ctx)
	for _, job := range h.jobs {
		if !job.Enabled {
			h.logger.Info("job disabled", "job", job.Name)
			continue
		}
		schedule, err := cron.ParseStandard(job.Schedule)
		if err != nil {
			h.logger.Error("invalid schedule, job skipped", "job", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}

		id := h.cron.Schedule(schedule, cron.FuncJob(func() { h.tick(runCtx, job) }))
		h.entries[job.Name] = append(h.entries[job.Name], id)
		h.logger.Info("job scheduled", "job", job.Name, "schedule", job.Schedule, "next", schedule.Next(time.Now().In(h.loc)))
	}
}

// Stop cancels future ticks. A tick already running completes; the returned
// context is done once it has.
func (h *Handle) Stop() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	done := h.cron.Stop()
	h.cron = nil
	h.entries = make(map[string][]cron.EntryID)
	h.logger.Info("scheduler stopped")
	return done
}

// Status lists every configured job.
func (h *Handle) Status() []JobStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	statuses := make([]JobStatus, 0, len(h.jobs))
	for _, job := range h.jobs {
		statuses = append(statuses, JobStatus{
			Name:     job.Name,
			Schedule: job.Schedule,
			Enabled:  job.Enabled,
			Running:  len(h.entries[job.Name]) > 0,
		})
	}
	return statuses
}

// RunNow executes a job immediately, regardless of its schedule, and
// propagates the job's error.
func (h *Handle) RunNow(ctx context.Context, name string) (RunResult, error) {
	job, ok := h.lookup(name)
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	h.logger.Info("manual run", "job", name)
	start := time.Now()
	err := job.Run(ctx)
	result := RunResult{Success: err == nil, Duration: time.Since(start).Seconds()}
	if err != nil {
		return result, fmt.Errorf("run %s: %w", name, err)
	}
	return result, nil
}

func (h *Handle) lookup(name string) (Job, bool) {
	for _, job := range h.jobs {
		if job.Name == name {
			return job, true
		}
	}
	return Job{}, false
}

func (h *Handle) tick(ctx context.Context, job Job) {
	start := time.Now()
	h.logger.Info("job started", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		h.logger.Error("job failed", "job", job.Name, "duration", time.Since(start), "error", err)
		return
	}
	h.logger.Info("job finished", "job", job.Name, "duration", time.Since(start))
}
