package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/pkg/metrics"
	"github.com/user/change-analysis-service/pkg/utils"
)

// JobManager defines the interface for submitting analyses and checking their state.
type JobManager interface {
	// Submit queues an analysis and returns its job ID. The ID is derived from
	// the input, so resubmitting a finished or pending job queues nothing.
	Submit(ctx context.Context, input entity.ChangeInput) (string, error)
	GetStatus(ctx context.Context, jobID string) (*entity.JobStatus, error)
}

type jobManagerUseCase struct {
	queueRepo     repository.QueueRepository
	payloadRepo   repository.JobPayloadRepository
	resultRepo    repository.ResultCacheRepository
	failedJobRepo repository.FailedJobRepository
	ttl           time.Duration
}

// NewJobManager creates a new JobManager use case. ttl bounds how long
// payloads, results and failure records are kept.
func NewJobManager(
	queueRepo repository.QueueRepository,
	payloadRepo repository.JobPayloadRepository,
	resultRepo repository.ResultCacheRepository,
	failedJobRepo repository.FailedJobRepository,
	ttl time.Duration,
) JobManager {
	return &jobManagerUseCase{
		queueRepo:     queueRepo,
		payloadRepo:   payloadRepo,
		resultRepo:    resultRepo,
		failedJobRepo: failedJobRepo,
		ttl:           ttl,
	}
}

// JobID hashes every field of the input.
func JobID(input entity.ChangeInput) string {
	parts := []string{input.PrevDOM, input.CurDOM, input.Goal, input.Domain, input.URL}
	for _, ref := range []entity.ImageRef{input.PrevImage, input.CurImage} {
		parts = append(parts, ref.Kind.String(), ref.Value, string(ref.Bytes))
	}
	parts = append(parts, strings.Join(input.Keywords, "\x00"))
	return utils.HashParts(parts...)
}

func (uc *jobManagerUseCase) Submit(ctx context.Context, input entity.ChangeInput) (string, error) {
	if missing := input.Missing(); len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	jobID := JobID(input)

	if _, err := uc.resultRepo.Find(ctx, jobID); err == nil {
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		slog.Info("Analysis already cached", "job_id", jobID)
		return jobID, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to check result cache: %w", err)
	}
	metrics.ResultCacheTotal.WithLabelValues("miss").Inc()

	pending, err := uc.payloadRepo.Exists(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("failed to check pending job: %w", err)
	}
	if pending {
		return jobID, nil
	}

	if err := uc.payloadRepo.Save(ctx, jobID, input, uc.ttl); err != nil {
		return "", fmt.Errorf("failed to store job payload: %w", err)
	}
	if err := uc.queueRepo.Push(ctx, jobID); err != nil {
		return "", fmt.Errorf("failed to queue job: %w", err)
	}

	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.JobsInQueue.Set(float64(size))
	}
	slog.Info("Analysis queued", "job_id", jobID, "url", input.URL)
	return jobID, nil
}

func (uc *jobManagerUseCase) GetStatus(ctx context.Context, jobID string) (*entity.JobStatus, error) {
	// Check if completed
	stored, err := uc.resultRepo.Find(ctx, jobID)
	switch {
	case err == nil:
		completedAt := stored.CompletedAt
		return &entity.JobStatus{
			JobID:         jobID,
			CurrentStatus: entity.JobCompleted,
			CompletedAt:   &completedAt,
			Report:        stored.Report,
		}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to read result: %w", err)
	}

	// Check if pending; a resubmitted job outranks its old failure
	pending, err := uc.payloadRepo.Exists(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending job: %w", err)
	}
	if pending {
		return &entity.JobStatus{JobID: jobID, CurrentStatus: entity.JobPending}, nil
	}

	// Check if failed
	failed, err := uc.failedJobRepo.Find(ctx, jobID)
	switch {
	case err == nil:
		return &entity.JobStatus{
			JobID:         jobID,
			CurrentStatus: entity.JobFailed,
			FailureReason: failed.FailureReason,
		}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to read failure record: %w", err)
	}

	return &entity.JobStatus{JobID: jobID, CurrentStatus: entity.JobNotFound}, nil
}
