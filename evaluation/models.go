// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"time"
)

// Evidence is the payload a task presents for adherence evaluation.
// It is schema-less on purpose: agents produce arbitrarily shaped
// outputs, and each gate performs its own defensive extraction.
// Evidence is treated as immutable once constructed.
type Evidence struct {
	// Outputs holds the task outputs to evaluate
	// (e.g. {"status": "completed", "result": ...}).
	Outputs map[string]interface{} `json:"outputs"`

	// Traces holds execution traces kept for auditability only.
	// No gate evaluates them.
	Traces []map[string]interface{} `json:"traces"`

	// Scores holds optional numeric scores, e.g. from an AI
	// evaluation SDK.
	Scores map[string]float64 `json:"scores"`

	// Query is the original user query (used by the intent gate).
	Query string `json:"query,omitempty"`

	// Response is the agent response to the query (used by the
	// intent gate).
	Response string `json:"response,omitempty"`
}

// EvaluationRequest is the input to the evaluation entry point.
// TaskID, AgentID, and SubscriptionRef must be non-empty; callers
// validate, the contract does not.
type EvaluationRequest struct {
	TaskID          string   `json:"task_id"`
	AgentID         string   `json:"agent_id"`
	SubscriptionRef string   `json:"subscription_ref"`
	Evidence        Evidence `json:"evidence"`
}

// EvaluationResult is the outcome of a single adherence evaluation.
type EvaluationResult struct {
	// IntentHandled reflects the intent-resolution gate.
	IntentHandled bool `json:"intent_handled"`

	// Adhered reflects the conjunction of the four adherence gates.
	Adhered bool `json:"adhered"`

	// BillableUnits is 1 when both IntentHandled and Adhered, else 0.
	BillableUnits int `json:"billable_units"`

	// ReasonCodes has exactly one entry per gate, in gate order.
	ReasonCodes []string `json:"reason_codes"`

	// CorrelationID uniquely identifies this evaluation in the
	// audit trail.
	CorrelationID string `json:"correlation_id"`
}

// AuditRecord is the immutable audit entry persisted for every
// evaluation decision. It combines the full request context with the
// result so that any billing decision can be reconstructed later.
type AuditRecord struct {
	CorrelationID   string                 `json:"correlation_id"`
	TaskID          string                 `json:"task_id"`
	AgentID         string                 `json:"agent_id"`
	SubscriptionRef string                 `json:"subscription_ref"`
	Evidence        Evidence               `json:"evidence"`
	IntentHandled   bool                   `json:"intent_handled"`
	Adhered         bool                   `json:"adhered"`
	BillableUnits   int                    `json:"billable_units"`
	ReasonCodes     []string               `json:"reason_codes"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
