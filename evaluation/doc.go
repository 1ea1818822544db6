// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

/*
Package evaluation decides whether a completed agent task is billable.

# Overview

Each task is judged by the adherence contract, a fixed sequence of five
deterministic gates:

  - Intent resolution (optional) - the user's intent was identified and
    resolved
  - Terminal success - the task reached a terminal success state
  - Required outputs - a configurable set of output keys is present
  - Output validation - present outputs are non-null and non-empty
  - Approval (optional) - an explicit approved flag is truthy

All five gates run on every evaluation, regardless of earlier failures, so
the reason-code list always has exactly five entries. Partial short-circuits
would hide the outcomes of gates that never ran from the audit trail.

A task is billable only when both axes pass: intent was handled AND the
task adhered to gates two through five.

# Audit trail

The Evaluator mints a unique correlation ID per call and persists one
AuditRecord to the configured AuditStore, so any billing decision can be
reconstructed later. MemoryAuditStore is the default; PostgresAuditStore
provides a durable backend behind the same interface.
*/
package evaluation
