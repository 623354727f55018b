package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQueueRepo_FIFO(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	q := NewQueueRepo(client)

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, q.Push(ctx, "a"))
	require.NoError(t, q.Push(ctx, "b"))
	n, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first)
	second, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second)
}

func TestResultCacheRepo(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	repo := NewResultCacheRepo(client)

	_, err := repo.Find(ctx, "job-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := &entity.StoredReport{
		Report: &entity.Report{
			Result:  entity.ChangeResult{HasChange: true, Similarity: 0.7692, Importance: entity.ImportanceMedium, AlertCriteria: entity.AlertMedium},
			CurKPIs: entity.KpiMap{"Phase": 2},
		},
		CompletedAt: completed,
	}
	require.NoError(t, repo.Save(ctx, "job-1", stored, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL(resultKeyPrefix+"job-1"))

	got, err := repo.Find(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, stored.Report.Result, got.Report.Result)
	assert.Equal(t, 2.0, got.Report.CurKPIs["Phase"])
	assert.True(t, completed.Equal(got.CompletedAt))

	mr.FastForward(2 * time.Hour)
	_, err = repo.Find(ctx, "job-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "job-2", stored, time.Hour))
	require.NoError(t, repo.Delete(ctx, "job-2"))
	_, err = repo.Find(ctx, "job-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResultCacheRepo_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set(resultKeyPrefix+"bad", "{not json"))

	_, err := NewResultCacheRepo(client).Find(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestJobPayloadRepo(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	repo := NewJobPayloadRepo(client)

	in := entity.ChangeInput{
		PrevDOM:   "<p>Phase 1</p>",
		CurDOM:    "<p>Phase 2</p>",
		PrevImage: entity.ImageFromBytes([]byte{0x89, 'P', 'N', 'G'}),
		CurImage:  entity.ParseImageRef("data:image/png;base64,AAAA", false),
		Goal:      "Monitor clinical trial status",
		Domain:    "regulatory",
		Keywords:  []string{"phase"},
	}
	ok, err := repo.Exists(ctx, "j")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, "j", in, time.Minute))
	ok, err = repo.Exists(ctx, "j")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Find(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, in, *got)

	require.NoError(t, repo.Delete(ctx, "j"))
	_, err = repo.Find(ctx, "j")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFailedJobRepo_CountsRetries(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	repo := NewFailedJobRepo(client)

	_, err := repo.Find(ctx, "j")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	at := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	fj := &entity.FailedJob{JobID: "j", URL: "https://example.com", FailureReason: "missing payload", LastAttemptTimestamp: at}
	require.NoError(t, repo.Save(ctx, fj, time.Hour))
	fj.FailureReason = "still missing"
	require.NoError(t, repo.Save(ctx, fj, time.Hour))

	got, err := repo.Find(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "still missing", got.FailureReason)
	assert.Equal(t, 2, got.RetryCount)
	assert.True(t, at.Equal(got.LastAttemptTimestamp))
	assert.Equal(t, time.Hour, mr.TTL(failedKeyPrefix+"j"))

	require.NoError(t, repo.Delete(ctx, "j"))
	_, err = repo.Find(ctx, "j")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
