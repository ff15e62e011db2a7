package store

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared CounterStore for multi-worker deployments. Window
// timestamps live in sorted sets scored by unix milliseconds; bucket
// state lives in hashes. All mutations run in transactional pipelines so
// concurrent workers never observe half-written state.
type Redis struct {
	client *redis.Client
	prefix string
	seq    atomic.Uint64
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "traffic"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) windowKey(key string) string {
	return r.prefix + ":window:" + key
}

func (r *Redis) bucketKey(key string) string {
	return r.prefix + ":bucket:" + key
}

func (r *Redis) RecordTimestamp(ctx context.Context, key string, ts time.Time, ttl time.Duration) error {
	// Sequence suffix keeps members unique when two workers record the
	// same millisecond.
	member := fmt.Sprintf("%d-%d", ts.UnixMilli(), r.seq.Add(1))

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.windowKey(key), redis.Z{
		Score:  float64(ts.UnixMilli()),
		Member: member,
	})
	if ttl > 0 {
		pipe.Expire(ctx, r.windowKey(key), ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) TimestampsSince(ctx context.Context, key string, since time.Time) ([]time.Time, error) {
	sinceMilli := since.UnixMilli()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, r.windowKey(key), "-inf", fmt.Sprintf("(%d", sinceMilli))
	rangeCmd := pipe.ZRangeByScoreWithScores(ctx, r.windowKey(key), &redis.ZRangeBy{
		Min: strconv.FormatInt(sinceMilli, 10),
		Max: "+inf",
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	members := rangeCmd.Val()
	timestamps := make([]time.Time, 0, len(members))
	for _, member := range members {
		timestamps = append(timestamps, time.UnixMilli(int64(member.Score)))
	}
	return timestamps, nil
}

func (r *Redis) LoadBucket(ctx context.Context, key string) (BucketState, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.bucketKey(key)).Result()
	if err != nil {
		return BucketState{}, false, err
	}
	if len(fields) == 0 {
		return BucketState{}, false, nil
	}

	tokens, err := strconv.ParseFloat(fields["tokens"], 64)
	if err != nil {
		return BucketState{}, false, fmt.Errorf("corrupt bucket tokens for %q: %w", key, err)
	}
	refillMilli, err := strconv.ParseInt(fields["last_refill"], 10, 64)
	if err != nil {
		return BucketState{}, false, fmt.Errorf("corrupt bucket refill time for %q: %w", key, err)
	}

	return BucketState{
		Tokens:     tokens,
		LastRefill: time.UnixMilli(refillMilli),
	}, true, nil
}

func (r *Redis) SaveBucket(ctx context.Context, key string, state BucketState, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.bucketKey(key),
		"tokens", strconv.FormatFloat(state.Tokens, 'f', -1, 64),
		"last_refill", strconv.FormatInt(state.LastRefill.UnixMilli(), 10),
	)
	if ttl > 0 {
		pipe.Expire(ctx, r.bucketKey(key), ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
