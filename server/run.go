// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package server

import (
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"github.com/ctava-msft/agent-task-metering/evaluation"
	"github.com/ctava-msft/agent-task-metering/metering"
	"github.com/ctava-msft/agent-task-metering/shared/logger"
)

// Run is the exported entry point for the metering service.
//
// It loads configuration, wires the evaluation and metering engines to
// their configured backends, sets up HTTP routes, and starts the
// server. The function blocks until the server is shut down.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8080)
//   - CONFIG_FILE: optional YAML configuration file
//   - DATABASE_URL: PostgreSQL audit store connection string (optional)
//   - REDIS_URL: shared completion ledger (optional)
//   - PLAN_ID: Marketplace plan attached to usage events
//   - DRY_RUN: log usage events instead of submitting (default: true)
//   - MARKETPLACE_ENDPOINT: usage event submission URL (optional)
//   - MARKETPLACE_API_KEY: bearer token for the endpoint (optional)
//   - HOURLY_CAP / DAILY_CAP: guardrail caps, 0 = unlimited
func Run() {
	log.Println("Starting agent task metering service...")

	cfg, err := LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srv, err := Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(srv.Router())
	log.Printf("Agent task metering service listening on port %s (dry_run=%t)", cfg.Port, cfg.DryRun)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

// Build constructs a Server with the backends named by cfg: a durable
// audit store when DATABASE_URL is set, a shared Redis ledger when
// REDIS_URL is set, and an HTTP submitter when metering is live.
func Build(cfg Config) (*Server, error) {
	auditLog := logger.New("metering-server")

	var auditStore evaluation.AuditStore
	if cfg.DatabaseURL != "" {
		store, err := evaluation.NewPostgresAuditStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		auditStore = store
		log.Println("Audit store: PostgreSQL")
	} else {
		auditStore = evaluation.NewMemoryAuditStore()
		log.Println("Audit store: in-memory (volatile)")
	}

	var ledger metering.CompletionLedger
	if cfg.RedisURL != "" {
		redisLedger, err := metering.NewRedisLedger(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		ledger = redisLedger
		log.Println("Completion ledger: Redis")
	} else {
		ledger = metering.NewMemoryLedger()
		log.Println("Completion ledger: in-memory (volatile)")
	}

	var submitter metering.Submitter
	if !cfg.DryRun && cfg.MarketplaceEndpoint != "" {
		submitter = metering.NewHTTPSubmitter(cfg.MarketplaceEndpoint, cfg.MarketplaceAPIKey)
		log.Printf("Usage events will be submitted to %s", cfg.MarketplaceEndpoint)
	}

	evaluator := evaluation.NewEvaluator(cfg.Contract, auditStore, auditLog)
	meteringClient := metering.NewMeteringClient(metering.ClientConfig{
		DryRun:     cfg.DryRun,
		Submitter:  submitter,
		PlanID:     cfg.PlanID,
		Guardrails: cfg.Guardrails,
		Ledger:     ledger,
		Logger:     auditLog,
	})

	return NewServer(evaluator, meteringClient, auditLog), nil
}
