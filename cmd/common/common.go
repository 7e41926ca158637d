// Package common wires the application components shared by the CLI
// commands.
package common

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ideaminer/internal/config"
	"ideaminer/internal/database"
	"ideaminer/internal/dedup"
	"ideaminer/internal/fetch"
	"ideaminer/internal/logger"
	"ideaminer/internal/migration"
	"ideaminer/internal/monitoring"
	"ideaminer/internal/production"
	"ideaminer/internal/scheduler"
	"ideaminer/internal/staging"
	"ideaminer/internal/transform"
)

// App bundles the wired application components.
type App struct {
	Cfg      *config.Config
	Log      logger.Interface
	DB       *sqlx.DB
	Staging  staging.Store
	Sink     production.Sink
	Batches  migration.BatchStore
	Runs     *database.RunRepository
	Registry *fetch.Registry
}

// Setup loads configuration, connects the database and builds the shared
// components. The debug flag forces debug-level development logging.
func Setup(cfgFile string, debug bool) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if debug {
		cfg.Logger.Level = "debug"
		cfg.Logger.Development = true
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := fetch.NewRegistry()
	registry.Register("jsonfeed", fetch.NewJSONFeedFetcher(log))

	return &App{
		Cfg:      cfg,
		Log:      log,
		DB:       db,
		Staging:  staging.NewPostgresStore(db),
		Sink:     production.NewPostgresSink(db),
		Batches:  migration.NewPostgresBatchStore(db),
		Runs:     database.NewRunRepository(db),
		Registry: registry,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Error("closing database", "error", err)
		}
	}
}

// NewOrchestrator builds the fetch pipeline orchestrator.
func (a *App) NewOrchestrator() *fetch.Orchestrator {
	transformer := transform.New(a.Cfg.AI, a.Log)

	return fetch.NewOrchestrator(fetch.OrchestratorParams{
		Registry:     a.Registry,
		Runs:         a.Runs,
		Transformer:  transformer,
		Stager:       a.Staging,
		Detector:     dedup.NewDetector(a.Cfg.Staging.DuplicateThreshold),
		Scraping:     a.Cfg.Scraping,
		RecentWindow: time.Duration(a.Cfg.Staging.RecentWindowDays) * 24 * time.Hour,
		Monitor:      monitoring.NewLogRecorder(a.Log),
		Logger:       a.Log,
	})
}

// NewEngine builds the migration engine.
func (a *App) NewEngine() *migration.Engine {
	return migration.NewEngine(a.Staging, a.Sink, a.Batches, a.Cfg.Migration, a.Log)
}

// NewScheduler builds the scheduler around the orchestrator.
func (a *App) NewScheduler(pipeline scheduler.Pipeline) *scheduler.Scheduler {
	return scheduler.New(scheduler.Params{
		Pipeline: pipeline,
		Runs:     a.Runs,
		Cleaner:  a.Staging,
		Registry: scheduler.NewRegistry(),
		Sources:  a.Cfg.Scraping.Sources,
		Schedule: a.Cfg.Schedule,
		Staging:  a.Cfg.Staging,
		Logger:   a.Log,
	})
}
