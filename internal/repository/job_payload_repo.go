package repository

import (
	"context"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
)

// JobPayloadRepository keeps the inputs of queued analyses until a worker picks them up.
type JobPayloadRepository interface {
	// Save stores the input of a job. An existing payload is overwritten.
	Save(ctx context.Context, jobID string, input entity.ChangeInput, expiry time.Duration) error
	// Find retrieves the input of a job or ErrNotFound.
	Find(ctx context.Context, jobID string) (*entity.ChangeInput, error)
	// Exists reports whether a payload is still stored for the job.
	Exists(ctx context.Context, jobID string) (bool, error)
	// Delete removes the payload, typically once the job is finished.
	Delete(ctx context.Context, jobID string) error
}
