package domain

import "time"

// ScheduledRun records one execution of the pipeline against one source,
// or against the full source set for the daily sweep.
type ScheduledRun struct {
	ID           string      `db:"id"            json:"id"`
	SourceName   string      `db:"source_name"   json:"source_name"`
	StartedAt    time.Time   `db:"started_at"    json:"started_at"`
	CompletedAt  *time.Time  `db:"completed_at"  json:"completed_at,omitempty"`
	Status       RunStatus   `db:"status"        json:"status"`
	Fetched      int         `db:"fetched"       json:"fetched"`
	Transformed  int         `db:"transformed"   json:"transformed"`
	Staged       int         `db:"staged"        json:"staged"`
	ErrorMessage *string     `db:"error_message" json:"error_message,omitempty"`
	Warnings     StringSlice `db:"warnings"      json:"warnings,omitempty"`
	Metadata     JSONBMap    `db:"metadata"      json:"metadata,omitempty"`
}

// RetryCount reads the retry counter from run metadata. Zero means the run
// was a first attempt.
func (r *ScheduledRun) RetryCount() int {
	if r.Metadata == nil {
		return 0
	}
	switch v := r.Metadata["retry_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SetRetryCount writes the retry counter into run metadata.
func (r *ScheduledRun) SetRetryCount(n int) {
	if r.Metadata == nil {
		r.Metadata = JSONBMap{}
	}
	r.Metadata["retry_count"] = n
}

// MarkCompleted closes the run as completed.
func (r *ScheduledRun) MarkCompleted(now time.Time) {
	r.Status = RunCompleted
	r.CompletedAt = &now
}

// MarkFailed closes the run as failed with an error message.
func (r *ScheduledRun) MarkFailed(now time.Time, msg string) {
	r.Status = RunFailed
	r.CompletedAt = &now
	r.ErrorMessage = &msg
}
