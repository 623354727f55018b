package entity

import "time"

// FailedJob records why a queued analysis could not be completed.
type FailedJob struct {
	JobID                string    `json:"job_id"`
	URL                  string    `json:"url"`
	FailureReason        string    `json:"failure_reason"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
	RetryCount           int       `json:"retry_count"`
}
