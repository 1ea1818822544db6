// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metering_evaluations_total",
			Help: "Total adherence evaluations by billable outcome",
		},
		[]string{"billable"},
	)
	promTasksRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metering_tasks_recorded_total",
			Help: "Total task completions newly recorded",
		},
	)
	promDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metering_duplicate_tasks_total",
			Help: "Total duplicate task completions suppressed",
		},
	)
	promGuardrailBreachesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metering_guardrail_breaches_total",
			Help: "Total guardrail cap breaches by cap type",
		},
		[]string{"cap_type"},
	)
	promUsageEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metering_usage_events_total",
			Help: "Total Marketplace usage events emitted",
		},
	)
)

func init() {
	prometheus.MustRegister(promEvaluationsTotal)
	prometheus.MustRegister(promTasksRecordedTotal)
	prometheus.MustRegister(promDuplicatesTotal)
	prometheus.MustRegister(promGuardrailBreachesTotal)
	prometheus.MustRegister(promUsageEventsTotal)
}
