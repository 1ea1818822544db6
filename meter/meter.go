// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

// Package meter collects token-level usage metrics for agent tasks.
// Unlike package metering, nothing here feeds billing; the records are
// operational telemetry for capacity and cost analysis.
package meter

import (
	"sort"
	"sync"
	"time"
)

// TaskMeter collects and aggregates metering data for agent tasks.
type TaskMeter struct {
	mu      sync.RWMutex
	records []TaskRecord
}

// NewTaskMeter creates an empty task meter.
func NewTaskMeter() *TaskMeter {
	return &TaskMeter{}
}

// Record stores a completed (or in-progress) agent task and returns the
// stored record. A zero start time means the current time.
func (m *TaskMeter) Record(record TaskRecord) TaskRecord {
	if record.StartTime.IsZero() {
		record.StartTime = time.Now().UTC()
	}
	if record.Metadata == nil {
		record.Metadata = map[string]interface{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return record
}

// TotalTokens returns the sum of all tokens across all recorded tasks.
func (m *TaskMeter) TotalTokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, r := range m.records {
		total += r.TotalTokens()
	}
	return total
}

// RecordsForAgent returns all records for a given agent.
func (m *TaskMeter) RecordsForAgent(agentID string) []TaskRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []TaskRecord
	for _, r := range m.records {
		if r.AgentID == agentID {
			records = append(records, r)
		}
	}
	return records
}

// Summary returns a high-level summary of all metered tasks.
type Summary struct {
	TotalTasks  int      `json:"total_tasks"`
	TotalTokens int      `json:"total_tokens"`
	Agents      []string `json:"agents"`
}

// Summarize returns the total task and token counts plus the sorted set
// of agents seen.
func (m *TaskMeter) Summarize() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agents := map[string]bool{}
	tokens := 0
	for _, r := range m.records {
		agents[r.AgentID] = true
		tokens += r.TotalTokens()
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	return Summary{
		TotalTasks:  len(m.records),
		TotalTokens: tokens,
		Agents:      names,
	}
}
