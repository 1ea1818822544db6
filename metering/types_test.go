// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package metering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHourKey(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{
			name: "truncates minutes and seconds",
			ts:   time.Date(2026, 6, 1, 14, 25, 43, 0, time.UTC),
			want: "2026-06-01T14:00:00Z",
		},
		{
			name: "already on the hour",
			ts:   time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
			want: "2026-06-01T14:00:00Z",
		},
		{
			name: "converts to UTC",
			ts:   time.Date(2026, 6, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			want: "2026-06-01T14:00:00Z",
		},
		{
			name: "midnight",
			ts:   time.Date(2026, 6, 1, 0, 5, 0, 0, time.UTC),
			want: "2026-06-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HourKey(tt.ts))
		})
	}
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2026-06-01", DayKey(time.Date(2026, 6, 1, 23, 59, 0, 0, time.UTC)))
	// A late-evening local time can land on the next UTC day.
	assert.Equal(t, "2026-06-02", DayKey(time.Date(2026, 6, 1, 22, 0, 0, 0, time.FixedZone("EST", -5*3600))))
}

func TestHourKeyPrefixedByDayKey(t *testing.T) {
	ts := time.Date(2026, 6, 1, 14, 25, 0, 0, time.UTC)
	assert.Contains(t, HourKey(ts), DayKey(ts))
}

func TestUsageEventToMap(t *testing.T) {
	event := UsageEvent{
		ResourceID:         "sub-1",
		Quantity:           7,
		Dimension:          Dimension,
		EffectiveStartTime: "2026-06-01T14:00:00Z",
		PlanID:             "standard",
	}

	m := event.ToMap()
	assert.Equal(t, "sub-1", m["resourceId"])
	assert.Equal(t, 7, m["quantity"])
	assert.Equal(t, "task_completed", m["dimension"])
	assert.Equal(t, "2026-06-01T14:00:00Z", m["effectiveStartTime"])
	assert.Equal(t, "standard", m["planId"])
}
