// Package queue is a Redis-backed job queue: a ready list consumed with
// BRPOP, a sorted set of delayed retries scored by run time, and a
// dead-letter list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when no job arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

type Keys struct {
	Ready   string
	Delayed string
	Dead    string
}

func DefaultKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "tourhub"
	}
	return Keys{
		Ready:   prefix + ":jobs:ready",
		Delayed: prefix + ":jobs:delayed",
		Dead:    prefix + ":jobs:dead",
	}
}

type Queue struct {
	rdb  *redis.Client
	keys Keys
}

func New(rdb *redis.Client, keys Keys) *Queue {
	return &Queue{rdb: rdb, keys: keys}
}

func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.keys.Ready, b).Err(); err != nil {
		return fmt.Errorf("queue.enqueue: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest ready job.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.keys.Ready).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}
		return jobs.Job{}, fmt.Errorf("queue.pop: %w", err)
	}
	// res is [key, value]
	return jobs.Unmarshal([]byte(res[1]))
}

// Retry parks j until at.
func (q *Queue) Retry(ctx context.Context, j jobs.Job, at time.Time) error {
	j.RunAt = at.UTC()
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}
	err = q.rdb.ZAdd(ctx, q.keys.Delayed, redis.Z{Score: float64(at.UnixMilli()), Member: b}).Err()
	if err != nil {
		return fmt.Errorf("queue.retry: %w", err)
	}
	return nil
}

func (q *Queue) DeadLetter(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.keys.Dead, b).Err(); err != nil {
		return fmt.Errorf("queue.dead_letter: %w", err)
	}
	return nil
}

// promoteScript moves due members from the delayed set to the ready list in
// one step so two workers never promote the same job.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('LPUSH', KEYS[2], member)
end
return #due
`)

// PromoteDue moves up to batch delayed jobs whose run time has passed.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	n, err := promoteScript.Run(ctx, q.rdb, []string{q.keys.Delayed, q.keys.Ready}, now.UnixMilli(), batch).Int()
	if err != nil {
		return 0, fmt.Errorf("queue.promote: %w", err)
	}
	return n, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Stats is a point-in-time size of each queue structure.
type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.Pipeline()
	ready := pipe.LLen(ctx, q.keys.Ready)
	delayed := pipe.ZCard(ctx, q.keys.Delayed)
	dead := pipe.LLen(ctx, q.keys.Dead)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue.stats: %w", err)
	}
	return Stats{Ready: ready.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}

// ListDead returns up to limit dead-lettered jobs, newest first.
func (q *Queue) ListDead(ctx context.Context, limit int) ([]jobs.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := q.rdb.LRange(ctx, q.keys.Dead, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("queue.list_dead: %w", err)
	}

	out := make([]jobs.Job, 0, len(raw))
	for _, r := range raw {
		j, err := jobs.Unmarshal([]byte(r))
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// requeueOneScript swaps the oldest dead entry for its reset copy on the
// ready list, provided the oldest entry is still ARGV[1]. Each job leaves the
// dead list in the same step that puts it back on the ready list.
var requeueOneScript = redis.NewScript(`
local oldest = redis.call('LINDEX', KEYS[1], -1)
if oldest ~= ARGV[1] then return 0 end
redis.call('RPOP', KEYS[1])
redis.call('LPUSH', KEYS[2], ARGV[2])
return 1
`)

// RequeueDead moves up to limit of the oldest dead jobs back to the ready
// list with their attempt counters reset. Entries that no longer decode are
// rotated to the newest end of the dead list and stay there.
func (q *Queue) RequeueDead(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	size, err := q.rdb.LLen(ctx, q.keys.Dead).Result()
	if err != nil {
		return 0, fmt.Errorf("queue.requeue_dead: %w", err)
	}

	n := 0
	for i := int64(0); i < size && n < limit; i++ {
		raw, err := q.rdb.LIndex(ctx, q.keys.Dead, -1).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return n, fmt.Errorf("queue.requeue_dead: %w", err)
		}

		j, err := jobs.Unmarshal([]byte(raw))
		if err != nil {
			if err := q.rdb.LMove(ctx, q.keys.Dead, q.keys.Dead, "RIGHT", "LEFT").Err(); err != nil {
				return n, fmt.Errorf("queue.requeue_dead: %w", err)
			}
			continue
		}

		j.Attempts = 0
		j.LastError = ""
		b, err := jobs.Marshal(j)
		if err != nil {
			return n, err
		}

		moved, err := requeueOneScript.Run(ctx, q.rdb, []string{q.keys.Dead, q.keys.Ready}, raw, b).Int()
		if err != nil {
			return n, fmt.Errorf("queue.requeue_dead: %w", err)
		}
		n += moved
	}
	return n, nil
}
