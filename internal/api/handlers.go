package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/staging"
)

const (
	defaultPageLimit  = 50
	defaultRunsLimit  = 50
	defaultHistLimit  = 20
	maxMigrationItems = 500
)

type handlers struct {
	trigger  SweepTrigger
	staging  staging.Store
	migrator Migrator
	runs     RunLister
	log      logger.Interface
}

// triggerScrape starts a manual sweep. Returns 202 immediately; the sweep
// runs in the background.
func (h *handlers) triggerScrape(c *gin.Context) {
	if err := h.trigger.TriggerSweep(c.Request.Context()); err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// schedulingStatus reports in-flight work: whether a sweep holds the global
// slot and which sources are currently running.
func (h *handlers) schedulingStatus(c *gin.Context) {
	sweep, sources := h.trigger.Running()
	if sources == nil {
		sources = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"sweep_running":   sweep,
		"running_sources": sources,
	})
}

func (h *handlers) listPending(c *gin.Context) {
	limit, offset := pageQuery(c, defaultPageLimit)

	items, err := h.staging.ListByReviewStatus(c.Request.Context(), domain.ReviewPending, limit, offset)
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *handlers) stagingSummary(c *gin.Context) {
	summary, err := h.staging.Summary(c.Request.Context())
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *handlers) getStagedItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.staging.GetByID(c.Request.Context(), id)
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// reviewRequest is the review decision payload.
type reviewRequest struct {
	Status   domain.ReviewStatus `json:"status"   binding:"required"`
	Reviewer string              `json:"reviewer" binding:"required"`
	Notes    *string             `json:"notes"`
}

func (h *handlers) reviewItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid item id")
		return
	}

	var req reviewRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		respondError(c, http.StatusBadRequest, bindErr.Error())
		return
	}

	if req.Status != domain.ReviewApproved && req.Status != domain.ReviewRejected {
		respondError(c, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}

	if err := h.staging.SetReview(c.Request.Context(), id, req.Status, req.Reviewer, req.Notes); err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// migrationRequest selects what to migrate. With ids set, only those items
// are migrated; otherwise up to batch_size approved items.
type migrationRequest struct {
	BatchSize int     `json:"batch_size"`
	IDs       []int64 `json:"ids"`
}

func (h *handlers) runMigration(c *gin.Context) {
	var req migrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	if len(req.IDs) > maxMigrationItems {
		respondError(c, http.StatusBadRequest, "too many items in one request")
		return
	}

	var (
		batch *domain.MigrationBatch
		err   error
	)
	if len(req.IDs) > 0 {
		batch, err = h.migrator.MigrateSpecific(c.Request.Context(), req.IDs)
	} else {
		batch, err = h.migrator.MigrateApproved(c.Request.Context(), req.BatchSize)
	}
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (h *handlers) migrationHistory(c *gin.Context) {
	limit, _ := pageQuery(c, defaultHistLimit)

	batches, err := h.migrator.History(c.Request.Context(), limit)
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches, "count": len(batches)})
}

func (h *handlers) migrationStatus(c *gin.Context) {
	state, batch, err := h.migrator.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondForError(c, err)
		return
	}

	if batch == nil {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "state": state})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": batch.ID, "state": state, "batch": batch})
}

func (h *handlers) rollbackMigration(c *gin.Context) {
	if err := h.migrator.Rollback(c.Request.Context(), c.Param("id")); err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "rolled_back": true})
}

func (h *handlers) listRuns(c *gin.Context) {
	limit, _ := pageQuery(c, defaultRunsLimit)

	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		respondForError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
