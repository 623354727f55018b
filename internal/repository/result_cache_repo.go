package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
)

// ErrNotFound is returned by lookups that have nothing stored under the key.
var ErrNotFound = errors.New("not found")

// ResultCacheRepository stores finished reports keyed by job ID.
type ResultCacheRepository interface {
	// Save stores a finished report with a specific expiry time.
	Save(ctx context.Context, jobID string, stored *entity.StoredReport, expiry time.Duration) error
	// Find returns the stored report or ErrNotFound.
	Find(ctx context.Context, jobID string) (*entity.StoredReport, error)
	// Delete removes a stored report.
	Delete(ctx context.Context, jobID string) error
}
