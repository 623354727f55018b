package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
)

const failedKeyPrefix = "changes:failed:"

// FailedJobRepoImpl records failed analyses as Redis hashes.
type FailedJobRepoImpl struct {
	client *redis.Client
}

// NewFailedJobRepo creates a new instance of FailedJobRepoImpl.
func NewFailedJobRepo(client *redis.Client) *FailedJobRepoImpl {
	return &FailedJobRepoImpl{client: client}
}

// Save creates or updates the failure record and increments retry_count.
func (r *FailedJobRepoImpl) Save(ctx context.Context, failed *entity.FailedJob, expiry time.Duration) error {
	key := failedKeyPrefix + failed.JobID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"url", failed.URL,
			"failure_reason", failed.FailureReason,
			"last_attempt_timestamp", failed.LastAttemptTimestamp.UTC().Format(time.RFC3339Nano),
		)
		pipe.HIncrBy(ctx, key, "retry_count", 1)
		pipe.Expire(ctx, key, expiry)
		return nil
	})
	return err
}

// Find retrieves the failure record of a job.
func (r *FailedJobRepoImpl) Find(ctx context.Context, jobID string) (*entity.FailedJob, error) {
	fields, err := r.client.HGetAll(ctx, failedKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}

	fj := &entity.FailedJob{
		JobID:         jobID,
		URL:           fields["url"],
		FailureReason: fields["failure_reason"],
	}
	fj.LastAttemptTimestamp, _ = time.Parse(time.RFC3339Nano, fields["last_attempt_timestamp"])
	fj.RetryCount, _ = strconv.Atoi(fields["retry_count"])
	return fj, nil
}

// Delete removes a failure record, typically after a successful retry.
func (r *FailedJobRepoImpl) Delete(ctx context.Context, jobID string) error {
	return r.client.Del(ctx, failedKeyPrefix+jobID).Err()
}
