// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package meter

import (
	"time"
)

// TaskRecord represents a single metered agent task.
type TaskRecord struct {
	TaskID       string                 `json:"task_id"`
	AgentID      string                 `json:"agent_id"`
	TaskType     string                 `json:"task_type"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time,omitempty"`
	InputTokens  int                    `json:"input_tokens"`
	OutputTokens int                    `json:"output_tokens"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Duration returns the task duration and whether the task has
// completed. A record without an end time has no duration yet.
func (r TaskRecord) Duration() (time.Duration, bool) {
	if r.EndTime.IsZero() {
		return 0, false
	}
	return r.EndTime.Sub(r.StartTime), true
}

// TotalTokens returns the combined input and output token count.
func (r TaskRecord) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
