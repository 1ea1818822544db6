// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

// Package logger provides structured JSON logging for the metering
// platform. Audit-relevant events carry a correlation_id linking each
// billing decision to its downstream recording and submission trail.
package logger
