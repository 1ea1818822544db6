// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"time"
)

// Dimension is the single Marketplace metering dimension this service
// reports.
const Dimension = "task_completed"

// UsageEvent is the Marketplace usage event payload (single dimension).
// Field names follow the Marketplace metering API wire format.
type UsageEvent struct {
	ResourceID         string `json:"resourceId"`
	Quantity           int    `json:"quantity"`
	Dimension          string `json:"dimension"`
	EffectiveStartTime string `json:"effectiveStartTime"`
	PlanID             string `json:"planId"`
}

// ToMap returns the event as a generic mapping, the shape handed to
// submission callbacks.
func (e UsageEvent) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"resourceId":         e.ResourceID,
		"quantity":           e.Quantity,
		"dimension":          e.Dimension,
		"effectiveStartTime": e.EffectiveStartTime,
		"planId":             e.PlanID,
	}
}

// CapType identifies which guardrail cap was breached.
type CapType string

const (
	CapHourly CapType = "hourly"
	CapDaily  CapType = "daily"
)

// AnomalyRecord is appended when a guardrail cap is exceeded for a
// subscription. ActualValue is the bucket count at the time of the
// breach and TaskID the completion that would have exceeded the cap.
type AnomalyRecord struct {
	SubscriptionRef string    `json:"subscription_ref"`
	CapType         CapType   `json:"cap_type"`
	CapValue        int       `json:"cap_value"`
	ActualValue     int       `json:"actual_value"`
	TaskID          string    `json:"task_id"`
	CorrelationID   string    `json:"correlation_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// GuardrailConfig holds per-subscription metering caps. A cap of 0
// means unlimited; the check is skipped entirely.
type GuardrailConfig struct {
	// HourlyCap is the maximum task_completed events per subscription
	// per hour.
	HourlyCap int `yaml:"hourly_cap"`

	// DailyCap is the maximum task_completed events per subscription
	// per day.
	DailyCap int `yaml:"daily_cap"`
}

// BucketKey identifies one completion-aggregation window.
type BucketKey struct {
	SubscriptionRef string
	HourKey         string
}

// HourKey returns the ISO-8601 hour bucket for ts, truncated in UTC,
// e.g. "2026-06-01T14:00:00Z".
func HourKey(ts time.Time) string {
	return ts.UTC().Truncate(time.Hour).Format("2006-01-02T15:00:00Z")
}

// DayKey returns the ISO-8601 day bucket for ts, truncated in UTC,
// e.g. "2026-06-01".
func DayKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
