// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ctava-msft/agent-task-metering/shared/logger"
)

// Evaluator runs the adherence contract against a request, mints a
// correlation ID, persists an audit record, and returns the billable
// outcome. The decision itself is deterministic: the same inputs always
// produce the same intent/adherence/billable outcome. Only the
// correlation ID and the audit timestamp vary between calls.
type Evaluator struct {
	contract   *AdherenceContract
	auditStore AuditStore
	log        *logger.Logger
}

// NewEvaluator creates an evaluator with the given contract
// configuration. A fresh in-memory audit store and a default logger are
// used when nil is supplied.
func NewEvaluator(config ContractConfig, auditStore AuditStore, log *logger.Logger) *Evaluator {
	if auditStore == nil {
		auditStore = NewMemoryAuditStore()
	}
	if log == nil {
		log = logger.New("evaluation")
	}
	return &Evaluator{
		contract:   NewAdherenceContract(config),
		auditStore: auditStore,
		log:        log,
	}
}

// Evaluate runs the adherence contract for request and returns the
// result. Exactly one audit record is persisted per call; if the audit
// write fails, the error is returned and no result is produced, so the
// caller never observes a decision that left no trail.
//
// Billing requires both axes: BillableUnits is 1 only when the intent
// gate and all four adherence gates pass.
func (e *Evaluator) Evaluate(ctx context.Context, request EvaluationRequest) (*EvaluationResult, error) {
	correlationID := uuid.New().String()

	intentHandled, adhered, reasonCodes := e.contract.Evaluate(request.Evidence)
	billableUnits := 0
	if intentHandled && adhered {
		billableUnits = 1
	}

	result := &EvaluationResult{
		IntentHandled: intentHandled,
		Adhered:       adhered,
		BillableUnits: billableUnits,
		ReasonCodes:   reasonCodes,
		CorrelationID: correlationID,
	}

	audit := AuditRecord{
		CorrelationID:   correlationID,
		TaskID:          request.TaskID,
		AgentID:         request.AgentID,
		SubscriptionRef: request.SubscriptionRef,
		Evidence:        request.Evidence,
		IntentHandled:   intentHandled,
		Adhered:         adhered,
		BillableUnits:   billableUnits,
		ReasonCodes:     reasonCodes,
		Timestamp:       time.Now().UTC(),
	}
	if err := e.auditStore.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to persist audit record: %w", err)
	}

	e.log.Event("evaluation_decision", correlationID, map[string]interface{}{
		"task_id":          request.TaskID,
		"agent_id":         request.AgentID,
		"subscription_ref": request.SubscriptionRef,
		"intent_handled":   intentHandled,
		"adhered":          adhered,
		"billable_units":   billableUnits,
		"reason_codes":     reasonCodes,
	})

	return result, nil
}

// Contract returns the underlying adherence contract.
func (e *Evaluator) Contract() *AdherenceContract {
	return e.contract
}

// AuditStore returns the underlying audit store.
func (e *Evaluator) AuditStore() AuditStore {
	return e.auditStore
}
