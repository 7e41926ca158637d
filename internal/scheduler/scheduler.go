// Package scheduler drives the pipeline on cron schedules: an hourly
// per-source due check, a daily full sweep, a retry sweep for failed runs
// and a retention cleanup. Overlapping work is skipped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ideaminer/internal/config"
	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
)

// Cron entry specs.
const (
	dueCheckSpec   = "0 * * * *"
	dailySweepSpec = "0 2 * * *"
	retrySpec      = "0 */4 * * *"
	cleanupSpec    = "30 3 * * *"

	// retryLookback bounds how far back the retry sweep searches for
	// failed runs.
	retryLookback = 24 * time.Hour
)

// ErrSweepRunning is returned when a sweep is requested while one is
// already in flight.
var ErrSweepRunning = errors.New("a sweep is already running")

// Pipeline runs the fetch, transform and stage flow. Implemented by the
// fetch orchestrator.
type Pipeline interface {
	RunAll(ctx context.Context, sources []domain.Source) []*domain.ScheduledRun
	RunOne(ctx context.Context, source *domain.Source) (*domain.ScheduledRun, error)
}

// RunRepo is the slice of the run repository the scheduler needs.
type RunRepo interface {
	Update(ctx context.Context, run *domain.ScheduledRun) error
	LastCompleted(ctx context.Context, sourceName string) (*domain.ScheduledRun, error)
	ExistsForSourceSince(ctx context.Context, sourceName string, since time.Time) (bool, error)
	FindFailedSince(ctx context.Context, since time.Time) ([]domain.ScheduledRun, error)
}

// Cleaner removes expired staged items. Implemented by the staging store.
type Cleaner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// Params carries the scheduler's collaborators.
type Params struct {
	Pipeline Pipeline
	Runs     RunRepo
	Cleaner  Cleaner
	Registry *Registry
	Sources  []domain.Source
	Schedule config.ScheduleConfig
	Staging  config.StagingConfig
	Logger   logger.Interface
}

// Scheduler owns the cron entries and the run registry.
type Scheduler struct {
	pipeline Pipeline
	runs     RunRepo
	cleaner  Cleaner
	registry *Registry
	sources  []domain.Source
	cfg      config.ScheduleConfig
	staging  config.StagingConfig
	cron     *cron.Cron
	log      logger.Interface
	now      func() time.Time
}

// New creates a scheduler. Call Start to register cron entries and begin.
func New(p Params) *Scheduler {
	if p.Registry == nil {
		p.Registry = NewRegistry()
	}

	return &Scheduler{
		pipeline: p.Pipeline,
		runs:     p.Runs,
		cleaner:  p.Cleaner,
		registry: p.Registry,
		sources:  p.Sources,
		cfg:      p.Schedule,
		staging:  p.Staging,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		log:      p.Logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Registry exposes the run registry for status reporting.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start registers the cron entries and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	entries := []struct {
		spec string
		name string
		fn   func()
	}{
		{dueCheckSpec, "due check", func() { s.CheckDueSources(ctx) }},
		{dailySweepSpec, "daily sweep", func() { s.RunSweep(ctx, "daily") }},
		{retrySpec, "retry sweep", func() { s.RetryFailed(ctx) }},
		{cleanupSpec, "cleanup", func() { s.CleanupExpired(ctx) }},
	}

	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			return fmt.Errorf("register %s entry: %w", e.name, err)
		}
	}

	s.cron.Start()
	s.log.Info("scheduler started", "sources", len(s.sources))

	return nil
}

// Stop stops the cron scheduler and waits for running entries to return.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("scheduler stopped")
}

// CheckDueSources runs every enabled source whose schedule is due. Sources
// already running and sources inside the guard window are skipped.
func (s *Scheduler) CheckDueSources(ctx context.Context) {
	if s.registry.GlobalRunning() {
		s.log.Debug("due check skipped, sweep in progress")
		return
	}

	now := s.now()
	for i := range s.sources {
		src := &s.sources[i]
		if !src.Enabled {
			continue
		}

		due, err := s.sourceDue(ctx, src, now)
		if err != nil {
			s.log.Error("due evaluation failed", "source", src.Name, "error", err)
			continue
		}
		if !due {
			continue
		}

		s.runSource(ctx, src)
	}
}

// sourceDue combines the cron schedule with the guard window, which also
// counts failed attempts so a broken source does not retry every hour.
func (s *Scheduler) sourceDue(ctx context.Context, src *domain.Source, now time.Time) (bool, error) {
	if s.cfg.GuardWindow > 0 {
		recent, err := s.runs.ExistsForSourceSince(ctx, src.Name, now.Add(-s.cfg.GuardWindow))
		if err != nil {
			return false, err
		}
		if recent {
			return false, nil
		}
	}

	last, err := s.runs.LastCompleted(ctx, src.Name)
	if err != nil {
		return false, err
	}

	var lastRun *time.Time
	if last != nil {
		lastRun = last.CompletedAt
	}

	return IsDue(src.Schedule, lastRun, now, s.cfg.GuardWindow)
}

// runSource executes one source under its registry slot.
func (s *Scheduler) runSource(ctx context.Context, src *domain.Source) {
	if !s.registry.AcquireSource(src.Name) {
		s.log.Debug("source already running, skipped", "source", src.Name)
		return
	}
	defer s.registry.ReleaseSource(src.Name)

	if _, err := s.pipeline.RunOne(ctx, src); err != nil {
		s.log.Error("scheduled source run failed", "source", src.Name, "error", err)
	}
}

// RunSweep processes all enabled sources under the global slot. Returns
// false when a sweep was already in flight.
func (s *Scheduler) RunSweep(ctx context.Context, trigger string) bool {
	if !s.registry.AcquireGlobal() {
		s.log.Warn("sweep skipped, another sweep in progress", "trigger", trigger)
		return false
	}
	defer s.registry.ReleaseGlobal()

	s.sweep(ctx, trigger)

	return true
}

// sweep runs the pipeline over every enabled source whose slot is free.
// Sources still busy from an hourly run are left out rather than run a
// second time concurrently. Callers must hold the global slot.
func (s *Scheduler) sweep(ctx context.Context, trigger string) {
	sources := make([]domain.Source, 0, len(s.sources))
	for i := range s.sources {
		src := s.sources[i]
		if !src.Enabled {
			continue
		}
		if !s.registry.AcquireSource(src.Name) {
			s.log.Debug("source already running, left out of sweep", "source", src.Name, "trigger", trigger)
			continue
		}
		sources = append(sources, src)
	}
	defer func() {
		for i := range sources {
			s.registry.ReleaseSource(sources[i].Name)
		}
	}()

	s.log.Info("sweep started", "trigger", trigger, "sources", len(sources))
	runs := s.pipeline.RunAll(ctx, sources)

	var fetched, staged int
	for _, run := range runs {
		fetched += run.Fetched
		staged += run.Staged
	}
	s.log.Info("sweep completed", "trigger", trigger, "runs", len(runs), "fetched", fetched, "staged", staged)
}

// TriggerSweep starts a sweep asynchronously. Returns ErrSweepRunning when
// one is already in flight; the caller gets the answer before any work
// begins. The sweep is detached from the caller's context so it survives
// the HTTP request that triggered it.
func (s *Scheduler) TriggerSweep(ctx context.Context) error {
	if !s.registry.AcquireGlobal() {
		return ErrSweepRunning
	}

	sweepCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.registry.ReleaseGlobal()
		s.sweep(sweepCtx, "manual")
	}()

	return nil
}

// Running reports whether a sweep is in flight and which sources are
// currently being processed.
func (s *Scheduler) Running() (bool, []string) {
	return s.registry.GlobalRunning(), s.registry.RunningSources()
}

// RetryFailed re-runs sources whose last attempt failed, up to the retry
// ceiling carried in run metadata.
func (s *Scheduler) RetryFailed(ctx context.Context) {
	failed, err := s.runs.FindFailedSince(ctx, s.now().Add(-retryLookback))
	if err != nil {
		s.log.Error("retry sweep: loading failed runs", "error", err)
		return
	}

	// Keep only the latest failed run per source.
	latest := make(map[string]*domain.ScheduledRun, len(failed))
	for i := range failed {
		latest[failed[i].SourceName] = &failed[i]
	}

	for name, run := range latest {
		attempts := run.RetryCount()
		if attempts >= s.cfg.MaxRetryAttempts {
			s.log.Warn("retry ceiling reached, giving up", "source", name, "attempts", attempts)
			continue
		}

		src := s.findSource(name)
		if src == nil || !src.Enabled {
			continue
		}

		s.retrySource(ctx, src, attempts+1)
	}
}

// retrySource re-runs a source and stamps the retry counter on the new run.
func (s *Scheduler) retrySource(ctx context.Context, src *domain.Source, attempt int) {
	if !s.registry.AcquireSource(src.Name) {
		return
	}
	defer s.registry.ReleaseSource(src.Name)

	s.log.Info("retrying failed source", "source", src.Name, "attempt", attempt)

	run, err := s.pipeline.RunOne(ctx, src)
	if run != nil {
		run.SetRetryCount(attempt)
		if updateErr := s.runs.Update(ctx, run); updateErr != nil {
			s.log.Error("failed to record retry count", "run_id", run.ID, "error", updateErr)
		}
	}
	if err != nil {
		s.log.Error("retry failed", "source", src.Name, "attempt", attempt, "error", err)
	}
}

// CleanupExpired deletes migrated staged items past the retention window.
func (s *Scheduler) CleanupExpired(ctx context.Context) {
	if s.staging.RetentionDays <= 0 {
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.staging.RetentionDays)
	removed, err := s.cleaner.Cleanup(ctx, cutoff)
	if err != nil {
		s.log.Error("retention cleanup failed", "error", err)
		return
	}

	if removed > 0 {
		s.log.Info("retention cleanup completed", "removed", removed)
	}
}

func (s *Scheduler) findSource(name string) *domain.Source {
	for i := range s.sources {
		if s.sources[i].Name == name {
			return &s.sources[i]
		}
	}
	return nil
}
