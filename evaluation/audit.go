// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"context"
	"errors"
	"sync"
)

// ErrAuditNotFound is returned when no audit record exists for a
// correlation ID.
var ErrAuditNotFound = errors.New("audit record not found")

// AuditStore persists audit records keyed by correlation ID.
// Record overwrites on a colliding correlation ID; with 128-bit random
// IDs that collision is not expected to occur in practice.
type AuditStore interface {
	Record(ctx context.Context, audit AuditRecord) error
	Get(ctx context.Context, correlationID string) (*AuditRecord, error)
	ListRecords(ctx context.Context) ([]AuditRecord, error)
	Len() int
}

// MemoryAuditStore is a mutex-guarded in-memory audit store. Records
// live for the process lifetime; there is no eviction or size bound.
// Use PostgresAuditStore when the audit trail must survive restarts.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	records map[string]AuditRecord
	order   []string
}

// NewMemoryAuditStore creates an empty in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{
		records: make(map[string]AuditRecord),
	}
}

// Record persists an audit record, overwriting any existing record with
// the same correlation ID.
func (s *MemoryAuditStore) Record(ctx context.Context, audit AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[audit.CorrelationID]; !exists {
		s.order = append(s.order, audit.CorrelationID)
	}
	s.records[audit.CorrelationID] = audit
	return nil
}

// Get retrieves a single record by its correlation ID.
func (s *MemoryAuditStore) Get(ctx context.Context, correlationID string) (*AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[correlationID]
	if !ok {
		return nil, ErrAuditNotFound
	}
	return &record, nil
}

// ListRecords returns all stored records in insertion order.
func (s *MemoryAuditStore) ListRecords(ctx context.Context) ([]AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]AuditRecord, 0, len(s.order))
	for _, cid := range s.order {
		records = append(records, s.records[cid])
	}
	return records, nil
}

// Len returns the number of stored records.
func (s *MemoryAuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
