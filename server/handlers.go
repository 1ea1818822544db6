// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ctava-msft/agent-task-metering/evaluation"
	"github.com/ctava-msft/agent-task-metering/metering"
	"github.com/ctava-msft/agent-task-metering/shared/logger"
)

// Server wires the evaluation and metering engines to HTTP handlers.
// All dependencies are injected; there is no ambient global state.
type Server struct {
	evaluator *evaluation.Evaluator
	metering  *metering.MeteringClient
	log       *logger.Logger
}

// NewServer creates a server around the given engines. A default
// logger is used when nil is supplied.
func NewServer(evaluator *evaluation.Evaluator, meteringClient *metering.MeteringClient, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("server")
	}
	return &Server{
		evaluator: evaluator,
		metering:  meteringClient,
		log:       log,
	}
}

// Router builds the gorilla/mux router with all routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/evaluate", s.handleEvaluate).Methods("POST")
	r.HandleFunc("/evaluate_task_adherence", s.handleEvaluateTaskAdherence).Methods("POST")
	r.HandleFunc("/evaluate_intent_handling", s.handleEvaluateIntentHandling).Methods("POST")
	r.HandleFunc("/record_task_completed", s.handleRecordTaskCompleted).Methods("POST")
	r.HandleFunc("/evaluate_and_meter_task", s.handleEvaluateAndMeter).Methods("POST")
	r.HandleFunc("/aggregate_and_submit", s.handleAggregateAndSubmit).Methods("POST")
	r.HandleFunc("/audit/{correlation_id}", s.handleGetAudit).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

// evaluatePayload is the request body shared by the evaluation
// endpoints.
type evaluatePayload struct {
	TaskID          string              `json:"task_id"`
	AgentID         string              `json:"agent_id"`
	SubscriptionRef string              `json:"subscription_ref"`
	CorrelationID   string              `json:"correlation_id,omitempty"`
	Evidence        evaluation.Evidence `json:"evidence"`
}

// decodeEvaluatePayload parses and validates the common evaluation
// request shape. A nil return means the response was already written.
func (s *Server) decodeEvaluatePayload(w http.ResponseWriter, r *http.Request) *evaluatePayload {
	var payload evaluatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return nil
	}

	var missing []string
	if payload.TaskID == "" {
		missing = append(missing, "task_id")
	}
	if payload.AgentID == "" {
		missing = append(missing, "agent_id")
	}
	if payload.SubscriptionRef == "" {
		missing = append(missing, "subscription_ref")
	}
	if len(missing) > 0 {
		s.writeError(w, "Missing fields: "+strings.Join(missing, ", "), http.StatusBadRequest)
		return nil
	}
	return &payload
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request, payload *evaluatePayload) *evaluation.EvaluationResult {
	result, err := s.evaluator.Evaluate(r.Context(), evaluation.EvaluationRequest{
		TaskID:          payload.TaskID,
		AgentID:         payload.AgentID,
		SubscriptionRef: payload.SubscriptionRef,
		Evidence:        payload.Evidence,
	})
	if err != nil {
		s.log.Error("evaluation failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, "Evaluation failed", http.StatusInternalServerError)
		return nil
	}

	promEvaluationsTotal.WithLabelValues(strconv.Itoa(result.BillableUnits)).Inc()
	return result
}

// handleEvaluate handles POST /evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	payload := s.decodeEvaluatePayload(w, r)
	if payload == nil {
		return
	}
	result := s.evaluate(w, r, payload)
	if result == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleEvaluateTaskAdherence handles POST /evaluate_task_adherence.
// Identical decision to /evaluate; a caller-supplied correlation_id is
// echoed back in place of the minted one. The audit record lives under
// the minted ID, returned as audit_correlation_id so echoing callers
// can still retrieve it.
func (s *Server) handleEvaluateTaskAdherence(w http.ResponseWriter, r *http.Request) {
	payload := s.decodeEvaluatePayload(w, r)
	if payload == nil {
		return
	}
	result := s.evaluate(w, r, payload)
	if result == nil {
		return
	}

	response := map[string]interface{}{
		"intent_handled": result.IntentHandled,
		"adhered":        result.Adhered,
		"billable_units": result.BillableUnits,
		"reason_codes":   result.ReasonCodes,
		"correlation_id": result.CorrelationID,
	}
	if payload.CorrelationID != "" {
		response["correlation_id"] = payload.CorrelationID
		response["audit_correlation_id"] = result.CorrelationID
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleEvaluateIntentHandling handles POST /evaluate_intent_handling.
// Only the intent-resolution outcome is reported; the full evaluation
// still runs so the audit trail stays complete.
func (s *Server) handleEvaluateIntentHandling(w http.ResponseWriter, r *http.Request) {
	payload := s.decodeEvaluatePayload(w, r)
	if payload == nil {
		return
	}
	result := s.evaluate(w, r, payload)
	if result == nil {
		return
	}

	response := map[string]interface{}{
		"intent_handled": result.IntentHandled,
		"reason":         result.ReasonCodes[0],
		"correlation_id": result.CorrelationID,
	}
	if payload.CorrelationID != "" {
		response["correlation_id"] = payload.CorrelationID
		response["audit_correlation_id"] = result.CorrelationID
	}
	s.writeJSON(w, http.StatusOK, response)
}

// recordPayload is the request body for POST /record_task_completed.
type recordPayload struct {
	SubscriptionRef string `json:"subscription_ref"`
	TaskID          string `json:"task_id"`
	CorrelationID   string `json:"correlation_id,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
}

// handleRecordTaskCompleted handles POST /record_task_completed
func (s *Server) handleRecordTaskCompleted(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var missing []string
	if payload.SubscriptionRef == "" {
		missing = append(missing, "subscription_ref")
	}
	if payload.TaskID == "" {
		missing = append(missing, "task_id")
	}
	if len(missing) > 0 {
		s.writeError(w, "Missing fields: "+strings.Join(missing, ", "), http.StatusBadRequest)
		return
	}

	var ts time.Time
	if payload.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			s.writeError(w, "Invalid timestamp: must be RFC 3339", http.StatusBadRequest)
			return
		}
		ts = parsed
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	outcome := s.metering.Record(r.Context(), payload.SubscriptionRef, payload.TaskID, ts, correlationID)
	s.countRecordOutcome(outcome)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recorded":       outcome == metering.OutcomeRecorded,
		"correlation_id": correlationID,
	})
}

// handleEvaluateAndMeter handles POST /evaluate_and_meter_task, the
// recommended single round trip: evaluate the task and, when billable,
// record the completion under the same correlation id.
func (s *Server) handleEvaluateAndMeter(w http.ResponseWriter, r *http.Request) {
	payload := s.decodeEvaluatePayload(w, r)
	if payload == nil {
		return
	}
	result := s.evaluate(w, r, payload)
	if result == nil {
		return
	}

	correlationID := result.CorrelationID
	if payload.CorrelationID != "" {
		correlationID = payload.CorrelationID
	}

	recorded := false
	if result.BillableUnits > 0 {
		outcome := s.metering.Record(r.Context(), payload.SubscriptionRef, payload.TaskID, time.Time{}, correlationID)
		s.countRecordOutcome(outcome)
		recorded = outcome == metering.OutcomeRecorded
	}

	response := map[string]interface{}{
		"intent_handled": result.IntentHandled,
		"adhered":        result.Adhered,
		"billable_units": result.BillableUnits,
		"reason_codes":   result.ReasonCodes,
		"correlation_id": correlationID,
		"recorded":       recorded,
	}
	if payload.CorrelationID != "" {
		response["audit_correlation_id"] = result.CorrelationID
	}
	s.writeJSON(w, http.StatusOK, response)
}

// aggregatePayload is the optional request body for POST
// /aggregate_and_submit.
type aggregatePayload struct {
	HourWindow    string `json:"hour_window,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// handleAggregateAndSubmit handles POST /aggregate_and_submit
func (s *Server) handleAggregateAndSubmit(w http.ResponseWriter, r *http.Request) {
	// An empty body means "aggregate every pending window".
	var payload aggregatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	events := s.metering.AggregateAndSubmit(r.Context(), payload.HourWindow, correlationID)
	promUsageEventsTotal.Add(float64(len(events)))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":         events,
		"count":          len(events),
		"correlation_id": correlationID,
	})
}

// handleGetAudit handles GET /audit/{correlation_id}
func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	correlationID := mux.Vars(r)["correlation_id"]

	audit, err := s.evaluator.AuditStore().Get(r.Context(), correlationID)
	if err != nil {
		if errors.Is(err, evaluation.ErrAuditNotFound) {
			s.writeError(w, "Audit record not found", http.StatusNotFound)
			return
		}
		s.log.Error("audit lookup failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, "Audit lookup failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, audit)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) countRecordOutcome(outcome metering.RecordOutcome) {
	switch outcome {
	case metering.OutcomeRecorded:
		promTasksRecordedTotal.Inc()
	case metering.OutcomeDuplicate:
		promDuplicatesTotal.Inc()
	case metering.OutcomeHourlyCap:
		promGuardrailBreachesTotal.WithLabelValues("hourly").Inc()
	case metering.OutcomeDailyCap:
		promGuardrailBreachesTotal.WithLabelValues("daily").Inc()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
