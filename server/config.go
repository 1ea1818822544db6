// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package server

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ctava-msft/agent-task-metering/evaluation"
	"github.com/ctava-msft/agent-task-metering/metering"
)

// Config holds the full service configuration. Values come from an
// optional YAML file overridden by environment variables (12-Factor
// App methodology).
type Config struct {
	// Port is the HTTP listen port.
	Port string `yaml:"port"`

	// PlanID is attached to every Marketplace usage event.
	PlanID string `yaml:"plan_id"`

	// DryRun logs usage events instead of submitting them.
	DryRun bool `yaml:"dry_run"`

	// Contract configures the adherence gates.
	Contract evaluation.ContractConfig `yaml:"contract"`

	// Guardrails configures per-subscription metering caps.
	Guardrails metering.GuardrailConfig `yaml:"guardrails"`

	// DatabaseURL enables the durable PostgreSQL audit store when set.
	DatabaseURL string `yaml:"database_url"`

	// RedisURL enables the shared Redis completion ledger when set.
	RedisURL string `yaml:"redis_url"`

	// MarketplaceEndpoint receives usage events when DryRun is false.
	MarketplaceEndpoint string `yaml:"marketplace_endpoint"`

	// MarketplaceAPIKey is the bearer token for the endpoint.
	MarketplaceAPIKey string `yaml:"marketplace_api_key"`
}

// DefaultConfig returns the permissive baseline: dry-run metering, no
// required output keys, no caps.
func DefaultConfig() Config {
	return Config{
		Port:     "8080",
		DryRun:   true,
		Contract: evaluation.DefaultContractConfig(),
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML
// file, and environment variable overrides, in that order.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.PlanID = getEnv("PLAN_ID", cfg.PlanID)
	cfg.DryRun = getEnvBool("DRY_RUN", cfg.DryRun)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MarketplaceEndpoint = getEnv("MARKETPLACE_ENDPOINT", cfg.MarketplaceEndpoint)
	cfg.MarketplaceAPIKey = getEnv("MARKETPLACE_API_KEY", cfg.MarketplaceAPIKey)
	cfg.Guardrails.HourlyCap = getEnvInt("HOURLY_CAP", cfg.Guardrails.HourlyCap)
	cfg.Guardrails.DailyCap = getEnvInt("DAILY_CAP", cfg.Guardrails.DailyCap)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
