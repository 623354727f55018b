package repository

import (
	"context"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
)

// FailedJobRepository defines the interface for recording analyses that could not be completed.
type FailedJobRepository interface {
	// Save creates or updates the failure record of a job, incrementing its retry count.
	Save(ctx context.Context, failed *entity.FailedJob, expiry time.Duration) error
	// Find retrieves the failure record of a job or ErrNotFound.
	Find(ctx context.Context, jobID string) (*entity.FailedJob, error)
	// Delete removes a failure record, typically after a successful retry.
	Delete(ctx context.Context, jobID string) error
}
