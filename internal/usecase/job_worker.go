package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/pkg/metrics"
)

var errPayloadExpired = errors.New("job payload expired before processing")

// storeTimeout bounds each storage step after a job has been popped.
const storeTimeout = 5 * time.Second

// JobWorker defines the interface for draining the analysis queue.
type JobWorker interface {
	// ProcessJobFromQueue handles at most one job. An empty queue is not an error.
	ProcessJobFromQueue(ctx context.Context) error
}

type jobWorkerUseCase struct {
	queueRepo     repository.QueueRepository
	payloadRepo   repository.JobPayloadRepository
	resultRepo    repository.ResultCacheRepository
	failedJobRepo repository.FailedJobRepository
	analyzer      ChangeAnalyzer
	ttl           time.Duration
}

// NewJobWorker creates a new instance of the job worker use case.
func NewJobWorker(
	queueRepo repository.QueueRepository,
	payloadRepo repository.JobPayloadRepository,
	resultRepo repository.ResultCacheRepository,
	failedJobRepo repository.FailedJobRepository,
	analyzer ChangeAnalyzer,
	ttl time.Duration,
) JobWorker {
	return &jobWorkerUseCase{
		queueRepo:     queueRepo,
		payloadRepo:   payloadRepo,
		resultRepo:    resultRepo,
		failedJobRepo: failedJobRepo,
		analyzer:      analyzer,
		ttl:           ttl,
	}
}

func (uc *jobWorkerUseCase) ProcessJobFromQueue(ctx context.Context) error {
	jobID, err := uc.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Queue is empty, which is a normal state.
			return nil
		}
		return fmt.Errorf("failed to pop job from queue: %w", err)
	}
	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.JobsInQueue.Set(float64(size))
	}

	slog.Info("Processing job from queue", "job_id", jobID)

	// The job has left the queue; record its outcome even if ctx is cancelled.
	findCtx, cancel := storeContext(ctx)
	input, err := uc.payloadRepo.Find(findCtx, jobID)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uc.handleJobFailure(ctx, jobID, "", errPayloadExpired)
		}
		return fmt.Errorf("failed to load payload of job %s: %w", jobID, err)
	}

	report, err := uc.analyzer.Analyze(ctx, *input)
	if err != nil {
		slog.Error("Analysis failed for job", "job_id", jobID, "error", err)
		return uc.handleJobFailure(ctx, jobID, input.URL, err)
	}
	return uc.handleJobSuccess(ctx, jobID, report)
}

func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
}

func (uc *jobWorkerUseCase) handleJobSuccess(ctx context.Context, jobID string, report *entity.Report) error {
	metrics.JobsTotal.WithLabelValues("success", "").Inc()
	ctx, cancel := storeContext(ctx)
	defer cancel()

	stored := &entity.StoredReport{Report: report, CompletedAt: time.Now().UTC()}
	if err := uc.resultRepo.Save(ctx, jobID, stored, uc.ttl); err != nil {
		return fmt.Errorf("failed to save result of job %s: %w", jobID, err)
	}

	if err := uc.payloadRepo.Delete(ctx, jobID); err != nil {
		slog.Warn("Failed to delete payload after successful analysis", "job_id", jobID, "error", err)
	}
	// If the job previously failed, drop the stale failure record.
	if err := uc.failedJobRepo.Delete(ctx, jobID); err != nil {
		slog.Warn("Failed to delete failure record after successful analysis", "job_id", jobID, "error", err)
	}
	return nil
}

func (uc *jobWorkerUseCase) handleJobFailure(ctx context.Context, jobID, url string, jobErr error) error {
	errorType := "unknown"
	switch {
	case errors.Is(jobErr, ErrInvalidInput):
		errorType = "invalid_input"
	case errors.Is(jobErr, errPayloadExpired):
		errorType = "expired"
	case errors.Is(jobErr, context.Canceled), errors.Is(jobErr, context.DeadlineExceeded):
		errorType = "canceled"
	}
	metrics.JobsTotal.WithLabelValues("failure", errorType).Inc()
	ctx, cancel := storeContext(ctx)
	defer cancel()

	failed := &entity.FailedJob{
		JobID:                jobID,
		URL:                  url,
		FailureReason:        jobErr.Error(),
		LastAttemptTimestamp: time.Now().UTC(),
	}
	if err := uc.failedJobRepo.Save(ctx, failed, uc.ttl); err != nil {
		return fmt.Errorf("failed to save failure record for job %s: %w", jobID, err)
	}
	if err := uc.payloadRepo.Delete(ctx, jobID); err != nil {
		slog.Warn("Failed to delete payload after failed analysis", "job_id", jobID, "error", err)
	}
	return nil
}
