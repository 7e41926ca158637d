// Package api implements the admin HTTP API for the pipeline.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ideaminer/internal/migration"
	"ideaminer/internal/scheduler"
	"ideaminer/internal/staging"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: message})
}

// respondForError maps the pipeline's sentinel errors onto HTTP statuses.
// Anything unmapped is a 500.
func respondForError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, staging.ErrNotFound), errors.Is(err, migration.ErrBatchNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, staging.ErrNotPending),
		errors.Is(err, migration.ErrAlreadyRolledBack),
		errors.Is(err, scheduler.ErrSweepRunning):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, migration.ErrRollbackDisabled):
		respondError(c, http.StatusForbidden, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

// pageQuery parses the limit and offset query parameters, clamping missing
// or malformed values to sane defaults.
func pageQuery(c *gin.Context, defaultLimit int) (limit, offset int) {
	if limit, _ = strconv.Atoi(c.Query("limit")); limit <= 0 {
		limit = defaultLimit
	}
	if offset, _ = strconv.Atoi(c.Query("offset")); offset < 0 {
		offset = 0
	}
	return limit, offset
}
