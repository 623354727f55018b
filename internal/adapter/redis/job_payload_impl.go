package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/change-analysis-service/internal/entity"
)

const payloadKeyPrefix = "changes:payload:"

// JobPayloadRepoImpl keeps queued analysis inputs in Redis until a worker consumes them.
type JobPayloadRepoImpl struct {
	client *redis.Client
}

// NewJobPayloadRepo creates a new instance of JobPayloadRepoImpl.
func NewJobPayloadRepo(client *redis.Client) *JobPayloadRepoImpl {
	return &JobPayloadRepoImpl{client: client}
}

// Save stores the input of a job with SETEX.
func (r *JobPayloadRepoImpl) Save(ctx context.Context, jobID string, input entity.ChangeInput, expiry time.Duration) error {
	return setJSON(ctx, r.client, payloadKeyPrefix+jobID, input, expiry)
}

// Find loads the input of a job.
func (r *JobPayloadRepoImpl) Find(ctx context.Context, jobID string) (*entity.ChangeInput, error) {
	var input entity.ChangeInput
	if err := getJSON(ctx, r.client, payloadKeyPrefix+jobID, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Exists checks for the payload key.
func (r *JobPayloadRepoImpl) Exists(ctx context.Context, jobID string) (bool, error) {
	// EXISTS returns 1 if the key exists, 0 otherwise.
	n, err := r.client.Exists(ctx, payloadKeyPrefix+jobID).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the payload of a job.
func (r *JobPayloadRepoImpl) Delete(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, payloadKeyPrefix+jobID).Err()
}
