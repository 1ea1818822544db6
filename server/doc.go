// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

/*
Package server exposes the evaluation and metering engines over REST.

The transport is deliberately thin: it validates request shape, maps
JSON payloads to engine calls, and reports Prometheus metrics. All
billing decisions live in the evaluation and metering packages.

Endpoints:

	POST /evaluate                 evaluate a task, return the billable outcome
	POST /evaluate_task_adherence  same decision, MCP-style envelope
	POST /evaluate_intent_handling intent-resolution gate outcome only
	POST /record_task_completed    record a billable completion
	POST /evaluate_and_meter_task  evaluate and, when billable, record
	POST /aggregate_and_submit     convert pending buckets into usage events
	GET  /audit/{correlation_id}   retrieve one audit record
	GET  /health                   liveness probe
	GET  /metrics                  Prometheus metrics
*/
package server
