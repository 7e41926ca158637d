package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/staging"
)

// SweepTrigger starts full pipeline sweeps and reports in-flight work.
// Implemented by the scheduler.
type SweepTrigger interface {
	TriggerSweep(ctx context.Context) error
	Running() (sweep bool, sources []string)
}

// Migrator is the slice of the migration engine the API needs.
type Migrator interface {
	MigrateApproved(ctx context.Context, batchSize int) (*domain.MigrationBatch, error)
	MigrateSpecific(ctx context.Context, ids []int64) (*domain.MigrationBatch, error)
	Rollback(ctx context.Context, batchID string) error
	Status(ctx context.Context, batchID string) (domain.BatchState, *domain.MigrationBatch, error)
	History(ctx context.Context, limit int) ([]domain.MigrationBatch, error)
}

// RunLister lists scheduled runs. Implemented by the run repository.
type RunLister interface {
	List(ctx context.Context, limit int) ([]domain.ScheduledRun, error)
}

// RouterParams carries the router's collaborators.
type RouterParams struct {
	Trigger  SweepTrigger
	Staging  staging.Store
	Migrator Migrator
	Runs     RunLister
	Logger   logger.Interface
}

// SetupRouter creates and configures the gin router with all routes.
func SetupRouter(p RouterParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(p.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		trigger:  p.Trigger,
		staging:  p.Staging,
		migrator: p.Migrator,
		runs:     p.Runs,
		log:      p.Logger,
	}

	v1 := router.Group("/api/v1")
	v1.POST("/scrape/trigger", h.triggerScrape)
	v1.GET("/scheduling/status", h.schedulingStatus)

	v1.GET("/staging/pending", h.listPending)
	v1.GET("/staging/summary", h.stagingSummary)
	v1.GET("/staging/:id", h.getStagedItem)
	v1.POST("/staging/:id/review", h.reviewItem)

	v1.POST("/migration/run", h.runMigration)
	v1.GET("/migration", h.migrationHistory)
	v1.GET("/migration/:id", h.migrationStatus)
	v1.POST("/migration/:id/rollback", h.rollbackMigration)

	v1.GET("/runs", h.listRuns)

	return router
}

// loggingMiddleware logs each HTTP request with latency and status.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
