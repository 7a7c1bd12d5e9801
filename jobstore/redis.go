package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/anythingworld/types"
)

// DefaultKeyPrefix namespaces every key the redis store writes.
const DefaultKeyPrefix = "aw:job:"

// maxTxRetries bounds optimistic-lock retries on a contended job key.
const maxTxRetries = 5

// RedisStore is a Redis-based implementation of Store, shared by every client
// process pointed at the same server. Job records are JSON strings; sorted sets
// keyed by creation time index all jobs and jobs per state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewRedisStore wraps an existing client. A zero ttl keeps records forever.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// jobKey returns the Redis key for a job record
func (s *RedisStore) jobKey(id types.JobID) string {
	return s.keyPrefix + "data:" + string(id)
}

// stateKey returns the Redis key for a state index
func (s *RedisStore) stateKey(state State) string {
	return s.keyPrefix + "state:" + string(state)
}

// allKey returns the Redis key for the index of all jobs
func (s *RedisStore) allKey() string {
	return s.keyPrefix + "all"
}

func (s *RedisStore) Save(ctx context.Context, job *Job) error {
	if err := prepare(job, s.now()); err != nil {
		return err
	}
	return s.watch(ctx, job.ID, func(tx *redis.Tx) error {
		old, err := s.get(ctx, tx, job.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.write(ctx, pipe, old, job)
		})
		return err
	})
}

func (s *RedisStore) Get(ctx context.Context, id types.JobID) (*Job, error) {
	return s.get(ctx, s.client, id)
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, id types.JobID) (*Job, error) {
	data, err := c.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// write queues the record and its index updates on pipe.
func (s *RedisStore) write(ctx context.Context, pipe redis.Pipeliner, old, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	member := redis.Z{Score: float64(job.CreatedAt.UnixNano()), Member: string(job.ID)}

	pipe.Set(ctx, s.jobKey(job.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.allKey(), member)
	if old != nil && old.State != job.State {
		pipe.ZRem(ctx, s.stateKey(old.State), string(job.ID))
	}
	pipe.ZAdd(ctx, s.stateKey(job.State), member)
	return nil
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*Job, error) {
	index := s.allKey()
	if filter.State != "" {
		index = s.stateKey(filter.State)
	}
	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if len(ids) == 0 {
		return []*Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(types.JobID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// record expired, its index entry is stale
			expired = append(expired, ids[i])
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", ids[i], err)
		}
		if filter.Match(&job) {
			jobs = append(jobs, &job)
		}
	}
	if len(expired) > 0 {
		s.client.ZRem(ctx, index, expired...)
	}
	return limit(jobs, filter.Limit), nil
}

func (s *RedisStore) RecordStage(ctx context.Context, id types.JobID, stage string, attempt int) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyStage(job, stage, attempt, now) })
}

func (s *RedisStore) MarkDone(ctx context.Context, id types.JobID, stage string) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyDone(job, stage, now) })
}

func (s *RedisStore) MarkFailed(ctx context.Context, id types.JobID, cause error) error {
	return s.update(ctx, id, func(job *Job, now time.Time) { applyFailed(job, cause, now) })
}

func (s *RedisStore) Delete(ctx context.Context, id types.JobID) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.jobKey(id))
	pipe.ZRem(ctx, s.allKey(), string(id))
	pipe.ZRem(ctx, s.stateKey(job.State), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// update applies fn to the stored record.
func (s *RedisStore) update(ctx context.Context, id types.JobID, fn func(*Job, time.Time)) error {
	return s.watch(ctx, id, func(tx *redis.Tx) error {
		old, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		job := old.Clone()
		fn(job, s.now())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.write(ctx, pipe, old, job)
		})
		return err
	})
}

// watch runs txf under WATCH on the job key so that the read of the previous
// record and the index writes derived from it are atomic. Writers racing on
// one job retry instead of losing each other's state.
func (s *RedisStore) watch(ctx context.Context, id types.JobID, txf func(*redis.Tx) error) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, s.jobKey(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update job %s: %w", id, redis.TxFailedErr)
}
