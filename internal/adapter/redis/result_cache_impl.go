package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/change-analysis-service/internal/entity"
)

const resultKeyPrefix = "changes:result:"

// ResultCacheRepoImpl provides a concrete implementation for the ResultCacheRepository interface using Redis.
type ResultCacheRepoImpl struct {
	client *redis.Client
}

// NewResultCacheRepo creates a new instance of ResultCacheRepoImpl.
func NewResultCacheRepo(client *redis.Client) *ResultCacheRepoImpl {
	return &ResultCacheRepoImpl{client: client}
}

// Save stores the report as JSON with a specific expiry time.
func (r *ResultCacheRepoImpl) Save(ctx context.Context, jobID string, stored *entity.StoredReport, expiry time.Duration) error {
	return setJSON(ctx, r.client, resultKeyPrefix+jobID, stored, expiry)
}

// Find loads a stored report.
func (r *ResultCacheRepoImpl) Find(ctx context.Context, jobID string) (*entity.StoredReport, error) {
	var stored entity.StoredReport
	if err := getJSON(ctx, r.client, resultKeyPrefix+jobID, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete removes a stored report.
func (r *ResultCacheRepoImpl) Delete(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, resultKeyPrefix+jobID).Err()
}
