// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

// Package main is the entry point for the agent task metering service.
//
// The service decides, per completed agent task, whether the task is
// billable (adherence contract evaluation with a full audit trail) and
// aggregates billable completions into hourly Marketplace usage events
// with duplicate suppression and guardrail caps.
//
// Usage:
//
//	./metering-server
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	CONFIG_FILE - optional YAML configuration file
//	DATABASE_URL - PostgreSQL audit store connection string (optional)
//	REDIS_URL - shared completion ledger (optional)
//	PLAN_ID - Marketplace plan attached to usage events
//	DRY_RUN - log usage events instead of submitting (default: true)
//	MARKETPLACE_ENDPOINT - usage event submission URL (optional)
//	MARKETPLACE_API_KEY - bearer token for the endpoint (optional)
//	HOURLY_CAP / DAILY_CAP - guardrail caps, 0 = unlimited
package main

import (
	"github.com/ctava-msft/agent-task-metering/server"
)

func main() {
	server.Run()
}
