package entity

import "time"

// Job states reported by JobStatus.CurrentStatus.
const (
	JobPending   = "pending"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobNotFound  = "not_found"
)

type JobStatus struct {
	JobID         string     `json:"job_id"`
	CurrentStatus string     `json:"current_status"` // "pending", "completed", "failed", "not_found"
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	Report        *Report    `json:"report,omitempty"`
}

// StoredReport is a finished analysis as kept in the result cache.
type StoredReport struct {
	Report      *Report   `json:"report"`
	CompletedAt time.Time `json:"completed_at"`
}
