// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"context"
	"strings"
	"sync"
)

// CompletionLedger stores the unique task IDs recorded per
// (subscription_ref, hour_key) bucket. The default memory ledger is
// process-local; RedisLedger shares buckets across instances.
//
// The ledger only stores membership; duplicate and cap decisions are
// made by the MeteringClient, which serializes access.
type CompletionLedger interface {
	// Contains reports whether taskID is already in the bucket.
	Contains(ctx context.Context, subscriptionRef, hourKey, taskID string) (bool, error)

	// Add inserts taskID into the bucket.
	Add(ctx context.Context, subscriptionRef, hourKey, taskID string) error

	// HourCount returns the bucket's cardinality.
	HourCount(ctx context.Context, subscriptionRef, hourKey string) (int, error)

	// DayCount returns the sum of the subscription's hour-bucket
	// cardinalities for the given day.
	DayCount(ctx context.Context, subscriptionRef, dayKey string) (int, error)

	// Buckets returns every known bucket key, in insertion order where
	// the backend preserves it.
	Buckets(ctx context.Context) ([]BucketKey, error)
}

// MemoryLedger is the default in-process CompletionLedger.
type MemoryLedger struct {
	mu          sync.RWMutex
	completions map[BucketKey]map[string]struct{}
	order       []BucketKey
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		completions: make(map[BucketKey]map[string]struct{}),
	}
}

// Contains reports whether taskID is already recorded for the bucket.
func (l *MemoryLedger) Contains(ctx context.Context, subscriptionRef, hourKey, taskID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bucket, ok := l.completions[BucketKey{subscriptionRef, hourKey}]
	if !ok {
		return false, nil
	}
	_, ok = bucket[taskID]
	return ok, nil
}

// Add inserts taskID into the bucket, creating it if needed.
func (l *MemoryLedger) Add(ctx context.Context, subscriptionRef, hourKey, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := BucketKey{subscriptionRef, hourKey}
	bucket, ok := l.completions[key]
	if !ok {
		bucket = make(map[string]struct{})
		l.completions[key] = bucket
		l.order = append(l.order, key)
	}
	bucket[taskID] = struct{}{}
	return nil
}

// HourCount returns the bucket's cardinality.
func (l *MemoryLedger) HourCount(ctx context.Context, subscriptionRef, hourKey string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.completions[BucketKey{subscriptionRef, hourKey}]), nil
}

// DayCount sums all hour buckets for the subscription on the given day.
func (l *MemoryLedger) DayCount(ctx context.Context, subscriptionRef, dayKey string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for key, tasks := range l.completions {
		if key.SubscriptionRef == subscriptionRef && strings.HasPrefix(key.HourKey, dayKey) {
			total += len(tasks)
		}
	}
	return total, nil
}

// Buckets returns every bucket key in insertion order.
func (l *MemoryLedger) Buckets(ctx context.Context) ([]BucketKey, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]BucketKey, len(l.order))
	copy(keys, l.order)
	return keys, nil
}
