// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// bucketKeyPrefix namespaces completion sets in Redis.
	bucketKeyPrefix = "metering:completions:"

	// bucketIndexKey is the set of all known "sub|hourKey" pairs.
	bucketIndexKey = "metering:buckets"

	// bucketTTL bounds Redis memory. Buckets only need to outlive the
	// aggregation cadence plus a retry margin.
	bucketTTL = 48 * time.Hour
)

// RedisLedger is a CompletionLedger backed by Redis sets, so that
// multiple metering instances share one completion ledger and duplicate
// suppression holds across the fleet.
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger connects to Redis using a URL of the form
// redis://host:port or redis://host:port/db and verifies the
// connection.
func NewRedisLedger(redisURL string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLedger{client: client}, nil
}

// NewRedisLedgerWithClient wraps an existing client. Used by tests.
func NewRedisLedgerWithClient(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func bucketRedisKey(subscriptionRef, hourKey string) string {
	return bucketKeyPrefix + subscriptionRef + ":" + hourKey
}

// Contains reports whether taskID is already in the bucket.
func (l *RedisLedger) Contains(ctx context.Context, subscriptionRef, hourKey, taskID string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, bucketRedisKey(subscriptionRef, hourKey), taskID).Result()
	if err != nil {
		return false, fmt.Errorf("redis SISMEMBER failed: %w", err)
	}
	return ok, nil
}

// Add inserts taskID into the bucket and registers the bucket in the
// index set.
func (l *RedisLedger) Add(ctx context.Context, subscriptionRef, hourKey, taskID string) error {
	key := bucketRedisKey(subscriptionRef, hourKey)

	pipe := l.client.Pipeline()
	pipe.SAdd(ctx, key, taskID)
	pipe.Expire(ctx, key, bucketTTL)
	pipe.SAdd(ctx, bucketIndexKey, subscriptionRef+"|"+hourKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis SADD failed: %w", err)
	}
	return nil
}

// HourCount returns the bucket's cardinality.
func (l *RedisLedger) HourCount(ctx context.Context, subscriptionRef, hourKey string) (int, error) {
	n, err := l.client.SCard(ctx, bucketRedisKey(subscriptionRef, hourKey)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis SCARD failed: %w", err)
	}
	return int(n), nil
}

// DayCount sums all hour buckets for the subscription on the given day.
func (l *RedisLedger) DayCount(ctx context.Context, subscriptionRef, dayKey string) (int, error) {
	buckets, err := l.Buckets(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, key := range buckets {
		if key.SubscriptionRef != subscriptionRef || !strings.HasPrefix(key.HourKey, dayKey) {
			continue
		}
		n, err := l.HourCount(ctx, key.SubscriptionRef, key.HourKey)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Buckets returns every known bucket key.
func (l *RedisLedger) Buckets(ctx context.Context) ([]BucketKey, error) {
	members, err := l.client.SMembers(ctx, bucketIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS failed: %w", err)
	}

	keys := make([]BucketKey, 0, len(members))
	for _, member := range members {
		parts := strings.SplitN(member, "|", 2)
		if len(parts) != 2 {
			continue
		}
		keys = append(keys, BucketKey{SubscriptionRef: parts[0], HourKey: parts[1]})
	}
	return keys, nil
}

// Close releases the Redis connection pool.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
