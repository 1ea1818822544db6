// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresAuditStore is a durable AuditStore backed by PostgreSQL.
// Evidence, reason codes, and metadata are stored as JSONB so that any
// billing decision can be reconstructed with its full context.
type PostgresAuditStore struct {
	db *sql.DB
}

// NewPostgresAuditStore connects to PostgreSQL and ensures the audit
// table exists.
func NewPostgresAuditStore(databaseURL string) (*PostgresAuditStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	store := &PostgresAuditStore{db: db}
	if err := store.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return store, nil
}

// NewPostgresAuditStoreWithDB wraps an existing database handle.
// The caller owns the handle's lifecycle. Used by tests.
func NewPostgresAuditStoreWithDB(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

func (s *PostgresAuditStore) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS evaluation_audit (
		correlation_id VARCHAR(255) PRIMARY KEY,
		task_id VARCHAR(255) NOT NULL,
		agent_id VARCHAR(255) NOT NULL,
		subscription_ref VARCHAR(255) NOT NULL,
		evidence JSONB NOT NULL,
		intent_handled BOOLEAN NOT NULL,
		adhered BOOLEAN NOT NULL,
		billable_units INTEGER NOT NULL,
		reason_codes JSONB NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		metadata JSONB,
		inserted_at BIGSERIAL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluation_audit_task ON evaluation_audit(task_id);
	CREATE INDEX IF NOT EXISTS idx_evaluation_audit_subscription ON evaluation_audit(subscription_ref);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record persists an audit record, overwriting any existing row with
// the same correlation ID.
func (s *PostgresAuditStore) Record(ctx context.Context, audit AuditRecord) error {
	evidence, err := json.Marshal(audit.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	reasonCodes, err := json.Marshal(audit.ReasonCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal reason codes: %w", err)
	}
	var metadata []byte
	if audit.Metadata != nil {
		if metadata, err = json.Marshal(audit.Metadata); err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluation_audit (
			correlation_id, task_id, agent_id, subscription_ref, evidence,
			intent_handled, adhered, billable_units, reason_codes, timestamp, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (correlation_id) DO UPDATE SET
			task_id = EXCLUDED.task_id,
			agent_id = EXCLUDED.agent_id,
			subscription_ref = EXCLUDED.subscription_ref,
			evidence = EXCLUDED.evidence,
			intent_handled = EXCLUDED.intent_handled,
			adhered = EXCLUDED.adhered,
			billable_units = EXCLUDED.billable_units,
			reason_codes = EXCLUDED.reason_codes,
			timestamp = EXCLUDED.timestamp,
			metadata = EXCLUDED.metadata
	`, audit.CorrelationID, audit.TaskID, audit.AgentID, audit.SubscriptionRef,
		evidence, audit.IntentHandled, audit.Adhered, audit.BillableUnits,
		reasonCodes, audit.Timestamp, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Get retrieves a single record by its correlation ID.
func (s *PostgresAuditStore) Get(ctx context.Context, correlationID string) (*AuditRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT correlation_id, task_id, agent_id, subscription_ref, evidence,
			intent_handled, adhered, billable_units, reason_codes, timestamp, metadata
		FROM evaluation_audit WHERE correlation_id = $1
	`, correlationID)

	audit, err := scanAuditRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit record: %w", err)
	}
	return audit, nil
}

// ListRecords returns all stored records in insertion order.
func (s *PostgresAuditStore) ListRecords(ctx context.Context) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT correlation_id, task_id, agent_id, subscription_ref, evidence,
			intent_handled, adhered, billable_units, reason_codes, timestamp, metadata
		FROM evaluation_audit ORDER BY inserted_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		audit, err := scanAuditRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, *audit)
	}
	return records, rows.Err()
}

// Len returns the number of stored records, or 0 if the count query
// fails.
func (s *PostgresAuditStore) Len() int {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluation_audit`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close releases the underlying database handle.
func (s *PostgresAuditStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditRecord(row rowScanner) (*AuditRecord, error) {
	var audit AuditRecord
	var evidence, reasonCodes []byte
	var metadata sql.NullString

	err := row.Scan(&audit.CorrelationID, &audit.TaskID, &audit.AgentID,
		&audit.SubscriptionRef, &evidence, &audit.IntentHandled, &audit.Adhered,
		&audit.BillableUnits, &reasonCodes, &audit.Timestamp, &metadata)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(evidence, &audit.Evidence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(reasonCodes, &audit.ReasonCodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reason codes: %w", err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &audit.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &audit, nil
}
