// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDefaultsStartTime(t *testing.T) {
	m := NewTaskMeter()

	stored := m.Record(TaskRecord{TaskID: "task-1", AgentID: "agent-1"})
	assert.False(t, stored.StartTime.IsZero())
	assert.NotNil(t, stored.Metadata)
}

func TestTotalTokens(t *testing.T) {
	m := NewTaskMeter()
	m.Record(TaskRecord{TaskID: "task-1", AgentID: "agent-1", InputTokens: 100, OutputTokens: 40})
	m.Record(TaskRecord{TaskID: "task-2", AgentID: "agent-2", InputTokens: 10, OutputTokens: 5})

	assert.Equal(t, 155, m.TotalTokens())
}

func TestRecordsForAgent(t *testing.T) {
	m := NewTaskMeter()
	m.Record(TaskRecord{TaskID: "task-1", AgentID: "agent-1"})
	m.Record(TaskRecord{TaskID: "task-2", AgentID: "agent-2"})
	m.Record(TaskRecord{TaskID: "task-3", AgentID: "agent-1"})

	records := m.RecordsForAgent("agent-1")
	require.Len(t, records, 2)
	assert.Equal(t, "task-1", records[0].TaskID)
	assert.Equal(t, "task-3", records[1].TaskID)
	assert.Empty(t, m.RecordsForAgent("agent-9"))
}

func TestSummarize(t *testing.T) {
	m := NewTaskMeter()
	m.Record(TaskRecord{TaskID: "task-1", AgentID: "zeta", InputTokens: 10})
	m.Record(TaskRecord{TaskID: "task-2", AgentID: "alpha", OutputTokens: 20})
	m.Record(TaskRecord{TaskID: "task-3", AgentID: "zeta", InputTokens: 5})

	summary := m.Summarize()
	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 35, summary.TotalTokens)
	assert.Equal(t, []string{"alpha", "zeta"}, summary.Agents)
}

func TestTaskRecordDuration(t *testing.T) {
	start := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)

	_, done := TaskRecord{StartTime: start}.Duration()
	assert.False(t, done, "no end time means no duration yet")

	d, done := TaskRecord{StartTime: start, EndTime: start.Add(90 * time.Second)}.Duration()
	assert.True(t, done)
	assert.Equal(t, 90*time.Second, d)
}
