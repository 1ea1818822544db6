// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.DryRun)
	assert.Empty(t, cfg.Contract.RequiredOutputKeys)
	assert.False(t, cfg.Contract.RequireApproval)
	assert.Equal(t, 3.0, cfg.Contract.IntentResolutionThreshold)
	assert.Zero(t, cfg.Guardrails.HourlyCap)
	assert.Zero(t, cfg.Guardrails.DailyCap)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
plan_id: premium
dry_run: false
contract:
  required_output_keys:
    - result
  require_approval: true
  intent_resolution_threshold: 4.0
guardrails:
  hourly_cap: 100
  daily_cap: 1000
redis_url: redis://localhost:6379
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "premium", cfg.PlanID)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, []string{"result"}, cfg.Contract.RequiredOutputKeys)
	assert.True(t, cfg.Contract.RequireApproval)
	assert.Equal(t, 4.0, cfg.Contract.IntentResolutionThreshold)
	assert.Equal(t, 100, cfg.Guardrails.HourlyCap)
	assert.Equal(t, 1000, cfg.Guardrails.DailyCap)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
plan_id: premium
`), 0o644))

	t.Setenv("PORT", "7070")
	t.Setenv("PLAN_ID", "enterprise")
	t.Setenv("DRY_RUN", "false")
	t.Setenv("HOURLY_CAP", "50")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "enterprise", cfg.PlanID)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 50, cfg.Guardrails.HourlyCap)
}

func TestLoadConfigNoFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("DRY_RUN", "not-a-bool")
	t.Setenv("HOURLY_CAP", "not-a-number")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.DryRun, "unparseable DRY_RUN keeps the default")
	assert.Zero(t, cfg.Guardrails.HourlyCap)
}
