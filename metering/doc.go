// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

/*
Package metering aggregates billable task completions into Marketplace
usage events with strict duplicate and cap control.

# Marketplace constraints

The aggregator enforces the Marketplace metered-billing rules:

  - at most one usage event per subscription per hour window
  - quantity aggregated within the hour
  - dimension is exactly "task_completed"

Completions are bucketed by (subscription_ref, hour_key) where hour_key
is the UTC timestamp truncated to the hour. A task_id counts at most
once per bucket; the same task_id in two different hour buckets counts
in each. Once a window has been submitted it is never submitted again,
which makes AggregateAndSubmit safe to call from a cron-style driver.

# Guardrails

Optional hourly and daily caps bound completions per subscription. A
breach is not an error: the completion is refused and an AnomalyRecord
is appended for operator review. Duplicates are refused silently, with
no anomaly, so downstream alerting can tell the two apart.
*/
package metering
