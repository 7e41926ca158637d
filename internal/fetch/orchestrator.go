package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ideaminer/internal/config"
	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/monitoring"
	"ideaminer/internal/staging"
)

const defaultWorkers = 3

// ErrScrapingDisabled is returned when a run is requested while scraping
// is switched off in configuration.
var ErrScrapingDisabled = errors.New("scraping is disabled")

// Transformer rewrites raw listings into candidates. Implemented by the
// transform client.
type Transformer interface {
	BatchTransform(ctx context.Context, listings []domain.RawListing) []domain.TransformedCandidate
}

// Stager is the slice of the staging store the pipeline needs.
type Stager interface {
	Stage(ctx context.Context, candidate *domain.TransformedCandidate) (*domain.StagedItem, error)
	KnownHashes(ctx context.Context) (map[string]struct{}, error)
	RecentTexts(ctx context.Context, since time.Time) ([]string, error)
}

// RunStore persists scheduled run records.
type RunStore interface {
	Create(ctx context.Context, run *domain.ScheduledRun) error
	Update(ctx context.Context, run *domain.ScheduledRun) error
}

// OrchestratorParams carries the orchestrator's collaborators.
type OrchestratorParams struct {
	Registry     *Registry
	Runs         RunStore
	Transformer  Transformer
	Stager       Stager
	Detector     *dedup.Detector
	Scraping     config.ScrapingConfig
	RecentWindow time.Duration
	Monitor      monitoring.Recorder
	Logger       logger.Interface
}

// Orchestrator runs the fetch, transform and stage pipeline per source.
type Orchestrator struct {
	registry     *Registry
	runs         RunStore
	transformer  Transformer
	stager       Stager
	detector     *dedup.Detector
	cfg          config.ScrapingConfig
	recentWindow time.Duration
	monitor      monitoring.Recorder
	log          logger.Interface
	now          func() time.Time
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	if p.Monitor == nil {
		p.Monitor = monitoring.NewNop()
	}
	if p.Detector == nil {
		p.Detector = dedup.NewDetector(dedup.DefaultThreshold)
	}

	workers := p.Scraping.MaxWorkers
	if workers <= 0 {
		workers = defaultWorkers
		p.Scraping.MaxWorkers = workers
	}

	return &Orchestrator{
		registry:     p.Registry,
		runs:         p.Runs,
		transformer:  p.Transformer,
		stager:       p.Stager,
		detector:     p.Detector,
		cfg:          p.Scraping,
		recentWindow: p.RecentWindow,
		monitor:      p.Monitor,
		log:          p.Logger,
		now:          time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunAll processes the enabled sources over a fixed worker pool. A source
// failure is isolated to its own run record; RunAll itself only fails when
// the context dies.
func (o *Orchestrator) RunAll(ctx context.Context, sources []domain.Source) []*domain.ScheduledRun {
	if !o.cfg.Enabled {
		o.log.Info("scraping disabled, sweep skipped")
		return nil
	}

	enabled := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	if len(enabled) == 0 {
		return nil
	}

	jobs := make(chan domain.Source)
	results := make(chan *domain.ScheduledRun, len(enabled))

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				run, err := o.RunOne(ctx, &src)
				if err != nil {
					o.log.Error("source run failed", "source", src.Name, "error", err)
				}
				if run != nil {
					results <- run
				}
			}
		}()
	}

	for _, src := range enabled {
		select {
		case jobs <- src:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	runs := make([]*domain.ScheduledRun, 0, len(enabled))
	for run := range results {
		runs = append(runs, run)
	}

	return runs
}

// RunOne executes the full pipeline for a single source, opening and
// closing a ScheduledRun regardless of outcome.
func (o *Orchestrator) RunOne(ctx context.Context, source *domain.Source) (*domain.ScheduledRun, error) {
	if !o.cfg.Enabled {
		return nil, ErrScrapingDisabled
	}

	run := &domain.ScheduledRun{
		ID:         uuid.NewString(),
		SourceName: source.Name,
		StartedAt:  o.now(),
		Status:     domain.RunRunning,
	}

	if err := o.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	o.monitor.RecordRunStart(run)
	log := o.log.With("run_id", run.ID, "source", source.Name)

	if err := o.execute(ctx, source, run, log); err != nil {
		run.MarkFailed(o.now(), err.Error())
		o.monitor.RecordRunError(run, err)

		if updateErr := o.runs.Update(ctx, run); updateErr != nil {
			log.Error("failed to close run record", "error", updateErr)
		}

		return run, err
	}

	run.MarkCompleted(o.now())
	o.monitor.RecordRunComplete(run)

	if err := o.runs.Update(ctx, run); err != nil {
		return run, fmt.Errorf("close run record: %w", err)
	}

	return run, nil
}

// execute performs fetch, filter, transform and stage for one source.
func (o *Orchestrator) execute(ctx context.Context, source *domain.Source, run *domain.ScheduledRun, log logger.Interface) error {
	fetcher, err := o.registry.Get(source)
	if err != nil {
		return err
	}

	listings, err := fetcher.Fetch(ctx, *source)
	if err != nil {
		return fmt.Errorf("fetch from %s: %w", source.Name, err)
	}
	run.Fetched = len(listings)

	unique, removedDup := dedup.FilterBatch(listings)
	if removedDup > 0 {
		run.Warnings = append(run.Warnings,
			fmt.Sprintf("removed %d duplicate listings within batch", removedDup))
	}

	valid := unique[:0:0]
	for i := range unique {
		l := &unique[i]
		if l.Valid() && fetcher.Validate(l) {
			valid = append(valid, unique[i])
		}
	}
	if removed := len(unique) - len(valid); removed > 0 {
		run.Warnings = append(run.Warnings,
			fmt.Sprintf("removed %d invalid listings", removed))
	}

	if len(valid) == 0 {
		log.Info("no listings to process")
		return nil
	}

	candidates := o.transformer.BatchTransform(ctx, valid)
	run.Transformed = len(candidates)
	if failed := len(valid) - len(candidates); failed > 0 {
		run.Warnings = append(run.Warnings,
			fmt.Sprintf("%d listings failed transformation", failed))
	}

	return o.stageCandidates(ctx, run, candidates, log)
}

// stageCandidates stores candidates, dropping near-duplicates against the
// staging area. The unique constraint in the store remains the last word on
// exact duplicates.
func (o *Orchestrator) stageCandidates(ctx context.Context, run *domain.ScheduledRun, candidates []domain.TransformedCandidate, log logger.Interface) error {
	known, err := o.stager.KnownHashes(ctx)
	if err != nil {
		return fmt.Errorf("load known hashes: %w", err)
	}

	recent, err := o.stager.RecentTexts(ctx, o.now().Add(-o.recentWindow))
	if err != nil {
		return fmt.Errorf("load recent texts: %w", err)
	}

	duplicates := 0
	for i := range candidates {
		c := &candidates[i]
		text := c.ProjectName + " " + c.ShortDescription + " " + c.Solution

		if o.detector.IsDuplicate(c.ContentHash, text, known, recent) {
			duplicates++
			continue
		}

		if _, stageErr := o.stager.Stage(ctx, c); stageErr != nil {
			if errors.Is(stageErr, staging.ErrDuplicate) {
				duplicates++
				continue
			}
			return fmt.Errorf("stage candidate %q: %w", c.ProjectName, stageErr)
		}

		known[c.ContentHash] = struct{}{}
		recent = append(recent, text)
		run.Staged++
	}

	if duplicates > 0 {
		run.Warnings = append(run.Warnings,
			fmt.Sprintf("dropped %d duplicate candidates against staging", duplicates))
	}

	log.Info("source pipeline finished",
		"fetched", run.Fetched, "transformed", run.Transformed, "staged", run.Staged)

	return nil
}
