package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeys(t *testing.T) {
	k := DefaultKeys("")
	if k.Ready != "tourhub:jobs:ready" || k.Delayed != "tourhub:jobs:delayed" || k.Dead != "tourhub:jobs:dead" {
		t.Fatalf("unexpected keys: %+v", k)
	}

	k = DefaultKeys("test")
	if k.Ready != "test:jobs:ready" {
		t.Fatalf("prefix not applied: %+v", k)
	}
}

func newTestQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, DefaultKeys("test")), rdb
}

func welcomeJob(t *testing.T, userID string) jobs.Job {
	t.Helper()
	j, err := jobs.NewJob(jobs.JobWelcomeEmail, jobs.WelcomeEmailPayload{UserID: userID, Email: userID + "@example.com"}, time.Now())
	require.NoError(t, err)
	return j
}

func TestQueue_PopIsFIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	first, second := welcomeJob(t, "u1"), welcomeJob(t, "u2")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestQueue_PopTimesOutEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_RetryIsPromotedOnlyWhenDue(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)
	now := time.Now()

	j := welcomeJob(t, "u1")
	require.NoError(t, q.Retry(ctx, j, now.Add(time.Minute)))

	n, err := q.PromoteDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	s, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Delayed: 1}, s)

	n, err = q.PromoteDue(ctx, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.WithinDuration(t, now.Add(time.Minute), got.RunAt, time.Millisecond)
}

func TestQueue_DeadLetterAndList(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	older, newer := welcomeJob(t, "u1"), welcomeJob(t, "u2")
	older.Attempts, older.LastError = 5, "smtp down"
	require.NoError(t, q.DeadLetter(ctx, older))
	require.NoError(t, q.DeadLetter(ctx, newer))

	dead, err := q.ListDead(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 2)
	assert.Equal(t, newer.ID, dead[0].ID, "newest first")

	dead, err = q.ListDead(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, dead, 1)

	s, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Dead)
}

func TestQueue_RequeueDeadResetsAttempts(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	j := welcomeJob(t, "u1")
	j.Attempts, j.LastError = 5, "smtp down"
	require.NoError(t, q.DeadLetter(ctx, j))

	n, err := q.RequeueDead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Zero(t, got.Attempts)
	assert.Empty(t, got.LastError)
}

func TestQueue_RequeueDeadKeepsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestQueue(t)

	// The garbage entry is the oldest, so it is met first.
	require.NoError(t, rdb.LPush(ctx, q.keys.Dead, "not-json").Err())
	require.NoError(t, q.DeadLetter(ctx, welcomeJob(t, "u1")))
	require.NoError(t, q.DeadLetter(ctx, welcomeJob(t, "u2")))

	n, err := q.RequeueDead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Ready)
	assert.Equal(t, int64(1), s.Dead)

	left, err := rdb.LRange(ctx, q.keys.Dead, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"not-json"}, left)
}

func TestQueue_RequeueDeadHonoursLimit(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	oldest := welcomeJob(t, "u1")
	require.NoError(t, q.DeadLetter(ctx, oldest))
	require.NoError(t, q.DeadLetter(ctx, welcomeJob(t, "u2")))
	require.NoError(t, q.DeadLetter(ctx, welcomeJob(t, "u3")))

	n, err := q.RequeueDead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, got.ID, "oldest dead job goes first")

	s, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Dead)
}
