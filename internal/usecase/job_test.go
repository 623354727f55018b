package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/change-analysis-service/internal/adapter/goquery_extractor"
	redis_adapter "github.com/user/change-analysis-service/internal/adapter/redis"
	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/usecase"
)

type jobFixture struct {
	manager usecase.JobManager
	worker  usecase.JobWorker
	queue   *redis_adapter.QueueRepoImpl
	payload *redis_adapter.JobPayloadRepoImpl
}

func newJobFixture(t *testing.T) jobFixture {
	t.Helper()
	return newJobFixtureWith(t, usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), mapDecoder{}, nil, usecase.DefaultEngineConfig()))
}

func newJobFixtureWith(t *testing.T, analyzer usecase.ChangeAnalyzer) jobFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queue := redis_adapter.NewQueueRepo(client)
	payload := redis_adapter.NewJobPayloadRepo(client)
	results := redis_adapter.NewResultCacheRepo(client)
	failed := redis_adapter.NewFailedJobRepo(client)

	return jobFixture{
		manager: usecase.NewJobManager(queue, payload, results, failed, time.Hour),
		worker:  usecase.NewJobWorker(queue, payload, results, failed, analyzer, time.Hour),
		queue:   queue,
		payload: payload,
	}
}

func TestJobs_SubmitProcessStatus(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t)

	id, err := f.manager.Submit(ctx, statusChange())
	require.NoError(t, err)
	assert.Equal(t, usecase.JobID(statusChange()), id)

	status, err := f.manager.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobPending, status.CurrentStatus)

	// A pending job is not queued twice.
	again, err := f.manager.Submit(ctx, statusChange())
	require.NoError(t, err)
	assert.Equal(t, id, again)
	size, err := f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	require.NoError(t, f.worker.ProcessJobFromQueue(ctx))

	status, err = f.manager.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCompleted, status.CurrentStatus)
	require.NotNil(t, status.CompletedAt)
	require.NotNil(t, status.Report)
	assert.Equal(t, 5.48, status.Report.Result.ImportScore)
	assert.Equal(t, entity.ImportanceMedium, status.Report.Result.Importance)

	exists, err := f.payload.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	// A cached result is returned without queueing.
	_, err = f.manager.Submit(ctx, statusChange())
	require.NoError(t, err)
	size, err = f.queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestJobs_EmptyQueueIsNotAnError(t *testing.T) {
	assert.NoError(t, newJobFixture(t).worker.ProcessJobFromQueue(context.Background()))
}

func TestJobs_UnknownID(t *testing.T) {
	status, err := newJobFixture(t).manager.GetStatus(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, entity.JobNotFound, status.CurrentStatus)
}

func TestJobs_SubmitRejectsInvalidInput(t *testing.T) {
	in := statusChange()
	in.Domain = ""
	_, err := newJobFixture(t).manager.Submit(context.Background(), in)
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestJobs_ExpiredPayloadIsRecordedAsFailure(t *testing.T) {
	ctx := context.Background()
	f := newJobFixture(t)

	id, err := f.manager.Submit(ctx, statusChange())
	require.NoError(t, err)
	require.NoError(t, f.payload.Delete(ctx, id))

	require.NoError(t, f.worker.ProcessJobFromQueue(ctx))

	status, err := f.manager.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, status.CurrentStatus)
	assert.Contains(t, status.FailureReason, "expired")
}

// cancellingAnalyzer cancels the worker context before handing back its report,
// as a shutdown arriving mid-analysis would.
type cancellingAnalyzer struct {
	usecase.ChangeAnalyzer
	cancel context.CancelFunc
}

func (a cancellingAnalyzer) Analyze(ctx context.Context, in entity.ChangeInput) (*entity.Report, error) {
	report, err := a.ChangeAnalyzer.Analyze(ctx, in)
	a.cancel()
	return report, err
}

func TestJobs_ResultStoredWhenCancelledDuringAnalysis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	inner := usecase.NewChangeAnalyzer(goquery_extractor.NewGoqueryExtractor(), mapDecoder{}, nil, usecase.DefaultEngineConfig())
	f := newJobFixtureWith(t, cancellingAnalyzer{ChangeAnalyzer: inner, cancel: cancel})

	id, err := f.manager.Submit(context.Background(), statusChange())
	require.NoError(t, err)

	require.NoError(t, f.worker.ProcessJobFromQueue(ctx))
	require.Error(t, ctx.Err())

	status, err := f.manager.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCompleted, status.CurrentStatus)
	require.NotNil(t, status.Report)
	assert.Equal(t, 5.48, status.Report.Result.ImportScore)
}

func TestJobID(t *testing.T) {
	a := statusChange()
	b := statusChange()
	assert.Equal(t, usecase.JobID(a), usecase.JobID(b))

	b.Keywords = []string{"clinical", "phase"}
	assert.NotEqual(t, usecase.JobID(a), usecase.JobID(b))

	c := statusChange()
	c.CurImage = entity.ImageFromBytes([]byte("png"))
	assert.NotEqual(t, usecase.JobID(a), usecase.JobID(c))
}
