// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ctava-msft/agent-task-metering/shared/logger"
)

// ClientConfig configures a MeteringClient.
type ClientConfig struct {
	// DryRun logs usage events instead of submitting them.
	DryRun bool

	// Submitter delivers usage events when DryRun is false. Nil means
	// events are built and tracked but not delivered.
	Submitter Submitter

	// PlanID is the Marketplace plan attached to every usage event.
	PlanID string

	// Guardrails holds the per-subscription caps.
	Guardrails GuardrailConfig

	// Ledger stores recorded completions. Defaults to a fresh
	// in-memory ledger.
	Ledger CompletionLedger

	// Logger receives structured audit events. Defaults to a logger
	// for the "metering" component.
	Logger *logger.Logger
}

// MeteringClient records task completions and emits aggregated
// Marketplace usage events.
//
// All shared state - the completion ledger, the submitted-window set,
// and the anomaly list - is guarded by one mutex so that every
// check-then-act sequence runs as a single critical section: at most
// cap insertions succeed, and concurrent aggregation calls can never
// both emit an event for the same window.
type MeteringClient struct {
	mu        sync.Mutex
	ledger    CompletionLedger
	guardrail GuardrailConfig
	planID    string
	dryRun    bool
	submitter Submitter
	log       *logger.Logger

	// submitted hour windows; membership is irrevocable.
	submitted map[BucketKey]bool

	// anomalies created when guardrail caps are breached.
	anomalies []AnomalyRecord
}

// NewMeteringClient creates a metering client.
func NewMeteringClient(cfg ClientConfig) *MeteringClient {
	if cfg.Ledger == nil {
		cfg.Ledger = NewMemoryLedger()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("metering")
	}
	return &MeteringClient{
		ledger:    cfg.Ledger,
		guardrail: cfg.Guardrails,
		planID:    cfg.PlanID,
		dryRun:    cfg.DryRun,
		submitter: cfg.Submitter,
		log:       cfg.Logger,
		submitted: make(map[BucketKey]bool),
	}
}

// RecordOutcome describes why a completion was or was not recorded.
type RecordOutcome string

const (
	OutcomeRecorded    RecordOutcome = "recorded"
	OutcomeDuplicate   RecordOutcome = "duplicate"
	OutcomeHourlyCap   RecordOutcome = "hourly_cap_exceeded"
	OutcomeDailyCap    RecordOutcome = "daily_cap_exceeded"
	OutcomeLedgerError RecordOutcome = "ledger_error"
)

// RecordTaskCompleted records a single task_completed event and reports
// whether the task was newly recorded. A false return means either a
// duplicate within the same hour (idempotent, no anomaly) or a
// guardrail cap breach (an AnomalyRecord is appended).
func (c *MeteringClient) RecordTaskCompleted(ctx context.Context, subscriptionRef, taskID string, ts time.Time, correlationID string) bool {
	return c.Record(ctx, subscriptionRef, taskID, ts, correlationID) == OutcomeRecorded
}

// Record is RecordTaskCompleted with a detailed outcome, so callers
// such as the HTTP transport can distinguish duplicates from cap
// breaches without inspecting the anomaly list.
//
// The duplicate check runs before the cap checks, so duplicates never
// produce anomaly records. When both caps are configured the hourly cap
// is checked first and a breach short-circuits without consulting the
// daily cap. A zero ts means the current time.
func (c *MeteringClient) Record(ctx context.Context, subscriptionRef, taskID string, ts time.Time, correlationID string) RecordOutcome {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	hourKey := HourKey(ts)
	dayKey := DayKey(ts)

	c.mu.Lock()
	defer c.mu.Unlock()

	duplicate, err := c.ledger.Contains(ctx, subscriptionRef, hourKey, taskID)
	if err != nil {
		c.logLedgerError(correlationID, subscriptionRef, taskID, err)
		return OutcomeLedgerError
	}
	if duplicate {
		c.log.Event("task_recording_duplicate", correlationID, map[string]interface{}{
			"subscription_ref": subscriptionRef,
			"task_id":          taskID,
			"hour_key":         hourKey,
		})
		return OutcomeDuplicate
	}

	if c.guardrail.HourlyCap > 0 {
		count, err := c.ledger.HourCount(ctx, subscriptionRef, hourKey)
		if err != nil {
			c.logLedgerError(correlationID, subscriptionRef, taskID, err)
			return OutcomeLedgerError
		}
		if count >= c.guardrail.HourlyCap {
			c.recordAnomaly(CapHourly, c.guardrail.HourlyCap, count, subscriptionRef, taskID, correlationID, ts)
			return OutcomeHourlyCap
		}
	}

	if c.guardrail.DailyCap > 0 {
		count, err := c.ledger.DayCount(ctx, subscriptionRef, dayKey)
		if err != nil {
			c.logLedgerError(correlationID, subscriptionRef, taskID, err)
			return OutcomeLedgerError
		}
		if count >= c.guardrail.DailyCap {
			c.recordAnomaly(CapDaily, c.guardrail.DailyCap, count, subscriptionRef, taskID, correlationID, ts)
			return OutcomeDailyCap
		}
	}

	if err := c.ledger.Add(ctx, subscriptionRef, hourKey, taskID); err != nil {
		c.logLedgerError(correlationID, subscriptionRef, taskID, err)
		return OutcomeLedgerError
	}

	c.log.Event("task_recorded", correlationID, map[string]interface{}{
		"subscription_ref": subscriptionRef,
		"task_id":          taskID,
		"hour_key":         hourKey,
	})
	return OutcomeRecorded
}

// AggregateAndSubmit converts recorded completions into usage events
// and returns the events emitted by this call, ordered by hour window
// then subscription.
//
// hourWindow restricts aggregation to one ISO-8601 hour bucket (e.g.
// "2026-06-01T14:00:00Z"); when empty, every recorded window is
// processed. Windows already submitted are silently skipped, so the
// operation is safe to call repeatedly without double-billing. A window
// is marked submitted even when the submitter reports an error; retry
// policy belongs to the submitter, not the aggregator.
func (c *MeteringClient) AggregateAndSubmit(ctx context.Context, hourWindow, correlationID string) []UsageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	buckets, err := c.ledger.Buckets(ctx)
	if err != nil {
		c.logLedgerError(correlationID, "", "", err)
		return nil
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].HourKey != buckets[j].HourKey {
			return buckets[i].HourKey < buckets[j].HourKey
		}
		return buckets[i].SubscriptionRef < buckets[j].SubscriptionRef
	})

	events := []UsageEvent{}
	for _, key := range buckets {
		if hourWindow != "" && key.HourKey != hourWindow {
			continue
		}
		if c.submitted[key] {
			continue // already submitted, idempotent guard
		}

		quantity, err := c.ledger.HourCount(ctx, key.SubscriptionRef, key.HourKey)
		if err != nil {
			c.logLedgerError(correlationID, key.SubscriptionRef, "", err)
			continue
		}
		if quantity == 0 {
			continue
		}

		event := UsageEvent{
			ResourceID:         key.SubscriptionRef,
			Quantity:           quantity,
			Dimension:          Dimension,
			EffectiveStartTime: key.HourKey,
			PlanID:             c.planID,
		}

		c.log.Event("aggregation_complete", correlationID, map[string]interface{}{
			"subscription_ref": key.SubscriptionRef,
			"hour_window":      key.HourKey,
			"quantity":         quantity,
		})

		if c.dryRun {
			payload, _ := json.Marshal(event)
			c.log.Info("[dry-run] usage event", map[string]interface{}{
				"usage_event": json.RawMessage(payload),
			})
		} else if c.submitter != nil {
			if err := c.submitter.Submit(ctx, event.ToMap()); err != nil {
				c.log.Error("usage event submission failed", map[string]interface{}{
					"subscription_ref": key.SubscriptionRef,
					"hour_window":      key.HourKey,
					"error":            err.Error(),
				})
			}
		}

		c.log.Event("marketplace_submission", correlationID, map[string]interface{}{
			"subscription_ref": key.SubscriptionRef,
			"hour_window":      key.HourKey,
			"quantity":         quantity,
			"dry_run":          c.dryRun,
		})

		c.submitted[key] = true
		events = append(events, event)
	}

	return events
}

// PendingQuantity returns the number of unique tasks recorded for a
// window. Read-only, no side effects.
func (c *MeteringClient) PendingQuantity(ctx context.Context, subscriptionRef, hourWindow string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	quantity, err := c.ledger.HourCount(ctx, subscriptionRef, hourWindow)
	if err != nil {
		c.logLedgerError("", subscriptionRef, "", err)
		return 0
	}
	return quantity
}

// Anomalies returns a copy of all guardrail breach records.
func (c *MeteringClient) Anomalies() []AnomalyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	anomalies := make([]AnomalyRecord, len(c.anomalies))
	copy(anomalies, c.anomalies)
	return anomalies
}

// DryRun reports whether the client logs events instead of submitting.
func (c *MeteringClient) DryRun() bool {
	return c.dryRun
}

// recordAnomaly appends a guardrail breach record and emits the
// matching audit event. Caller holds the mutex.
func (c *MeteringClient) recordAnomaly(capType CapType, capValue, actual int, subscriptionRef, taskID, correlationID string, ts time.Time) {
	c.anomalies = append(c.anomalies, AnomalyRecord{
		SubscriptionRef: subscriptionRef,
		CapType:         capType,
		CapValue:        capValue,
		ActualValue:     actual,
		TaskID:          taskID,
		CorrelationID:   correlationID,
		Timestamp:       ts,
	})

	c.log.Event("guardrail_cap_exceeded", correlationID, map[string]interface{}{
		"subscription_ref": subscriptionRef,
		"cap_type":         string(capType),
		"cap_value":        capValue,
		"actual":           actual,
		"task_id":          taskID,
		"review_needed":    true,
	})
}

func (c *MeteringClient) logLedgerError(correlationID, subscriptionRef, taskID string, err error) {
	c.log.Error("completion ledger failure", map[string]interface{}{
		"correlation_id":   correlationID,
		"subscription_ref": subscriptionRef,
		"task_id":          taskID,
		"error":            err.Error(),
	})
}
