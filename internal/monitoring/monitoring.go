// Package monitoring provides a fire-and-forget observability sink for
// pipeline runs. Recorder calls never return errors and never block the
// pipeline.
package monitoring

import (
	"time"

	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
)

// Recorder receives run lifecycle events and pipeline metrics.
type Recorder interface {
	RecordRunStart(run *domain.ScheduledRun)
	RecordRunComplete(run *domain.ScheduledRun)
	RecordRunError(run *domain.ScheduledRun, err error)
	RecordMetric(name string, value float64, tags map[string]string)
}

// LogRecorder implements Recorder by writing structured log events.
type LogRecorder struct {
	log logger.Interface
}

// NewLogRecorder creates a recorder backed by the given logger.
func NewLogRecorder(log logger.Interface) *LogRecorder {
	return &LogRecorder{log: log.With("component", "monitoring")}
}

// RecordRunStart logs the start of a run.
func (r *LogRecorder) RecordRunStart(run *domain.ScheduledRun) {
	r.log.Info("run started", "run_id", run.ID, "source", run.SourceName)
}

// RecordRunComplete logs the outcome counts of a run.
func (r *LogRecorder) RecordRunComplete(run *domain.ScheduledRun) {
	duration := time.Duration(0)
	if run.CompletedAt != nil {
		duration = run.CompletedAt.Sub(run.StartedAt)
	}

	r.log.Info("run completed",
		"run_id", run.ID,
		"source", run.SourceName,
		"status", run.Status,
		"fetched", run.Fetched,
		"transformed", run.Transformed,
		"staged", run.Staged,
		"warnings", len(run.Warnings),
		"duration", duration,
	)
}

// RecordRunError logs a run-level failure.
func (r *LogRecorder) RecordRunError(run *domain.ScheduledRun, err error) {
	r.log.Error("run failed", "run_id", run.ID, "source", run.SourceName, "error", err)
}

// RecordMetric logs a single metric observation.
func (r *LogRecorder) RecordMetric(name string, value float64, tags map[string]string) {
	r.log.Debug("metric", "name", name, "value", value, "tags", tags)
}

// NopRecorder discards all events. Used in tests.
type NopRecorder struct{}

// NewNop returns a recorder that does nothing.
func NewNop() Recorder { return &NopRecorder{} }

// RecordRunStart does nothing.
func (*NopRecorder) RecordRunStart(*domain.ScheduledRun) {}

// RecordRunComplete does nothing.
func (*NopRecorder) RecordRunComplete(*domain.ScheduledRun) {}

// RecordRunError does nothing.
func (*NopRecorder) RecordRunError(*domain.ScheduledRun, error) {}

// RecordMetric does nothing.
func (*NopRecorder) RecordMetric(string, float64, map[string]string) {}
