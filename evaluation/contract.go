// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"sort"
	"strconv"
	"strings"
)

// successStatuses are the "status" output values that count as terminal
// success (compared case-insensitively).
var successStatuses = map[string]bool{
	"completed": true,
	"success":   true,
}

// ContractConfig holds the configuration knobs for the adherence contract.
type ContractConfig struct {
	// RequiredOutputKeys lists output keys that must be present for the
	// required-outputs gate. Empty means the gate is skipped.
	RequiredOutputKeys []string `yaml:"required_output_keys"`

	// RequireApproval activates the approval gate.
	RequireApproval bool `yaml:"require_approval"`

	// RequireIntentResolution activates the intent-resolution gate.
	RequireIntentResolution bool `yaml:"require_intent_resolution"`

	// IntentResolutionThreshold is the minimum scores["intent_resolution"]
	// value for the intent gate to pass. Matches the Azure AI Evaluation
	// SDK default of 3.
	IntentResolutionThreshold float64 `yaml:"intent_resolution_threshold"`
}

// DefaultContractConfig returns the permissive baseline: no required
// keys, no approval gate, no intent resolution gate.
func DefaultContractConfig() ContractConfig {
	return ContractConfig{IntentResolutionThreshold: 3.0}
}

// AdherenceContract evaluates evidence against the deterministic
// adherence gates. It is a pure decision engine: no side effects, and
// identical evidence always yields identical outcomes.
type AdherenceContract struct {
	config ContractConfig
}

// NewAdherenceContract creates a contract with the given configuration.
// A zero threshold is replaced with the default of 3.0.
func NewAdherenceContract(config ContractConfig) *AdherenceContract {
	if config.IntentResolutionThreshold == 0 {
		config.IntentResolutionThreshold = 3.0
	}
	return &AdherenceContract{config: config}
}

// Config returns the contract configuration.
func (c *AdherenceContract) Config() ContractConfig {
	return c.config
}

// Evaluate runs all gates against evidence and returns
// (intentHandled, adhered, reasonCodes). intentHandled reflects the
// intent-resolution gate; adhered is the AND of the remaining four.
// Every gate executes regardless of earlier failures so that all five
// reason codes are collected for the audit trail.
func (c *AdherenceContract) Evaluate(evidence Evidence) (bool, bool, []string) {
	intentHandled, intentCode := c.gateIntentResolution(evidence)

	outputs := evidence.Outputs
	successPassed, successCode := gateTerminalSuccess(outputs)
	requiredPassed, requiredCode := c.gateRequiredOutputs(outputs)
	validPassed, validCode := gateOutputValidation(outputs)
	approvalPassed, approvalCode := c.gateApproval(outputs)

	adhered := successPassed && requiredPassed && validPassed && approvalPassed
	reasonCodes := []string{intentCode, successCode, requiredCode, validCode, approvalCode}
	return intentHandled, adhered, reasonCodes
}

// gateIntentResolution is the optional first gate: the user's intent
// must have been resolved. It is a priority chain: a numeric score wins
// over the explicit flag, which wins over query/response presence.
func (c *AdherenceContract) gateIntentResolution(evidence Evidence) (bool, string) {
	if !c.config.RequireIntentResolution {
		return true, "intent_resolution:skipped"
	}

	// Score from an AI evaluation SDK takes precedence.
	if score, ok := evidence.Scores["intent_resolution"]; ok {
		if score >= c.config.IntentResolutionThreshold {
			return true, "intent_resolution:passed"
		}
		return false, "intent_resolution:score_below_threshold=" + formatScore(score)
	}

	// Explicit flag.
	if isTruthy(evidence.Outputs["intent_handled"]) {
		return true, "intent_resolution:passed"
	}

	// Query + response presence.
	if evidence.Query != "" && evidence.Response != "" {
		return true, "intent_resolution:passed"
	}

	return false, "intent_resolution:failed"
}

// formatScore renders a score for a reason code. Integral values keep
// a trailing ".0" so the audit strings are identical no matter which
// scoring source produced the value.
func formatScore(score float64) string {
	s := strconv.FormatFloat(score, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// gateTerminalSuccess requires the evidence to signal a terminal
// success state.
func gateTerminalSuccess(outputs map[string]interface{}) (bool, string) {
	if isTruthy(outputs["terminal_success"]) {
		return true, "terminal_success:passed"
	}

	if status, ok := outputs["status"].(string); ok && successStatuses[strings.ToLower(status)] {
		return true, "terminal_success:passed"
	}

	return false, "terminal_success:failed"
}

// gateRequiredOutputs requires all configured output keys to be present.
func (c *AdherenceContract) gateRequiredOutputs(outputs map[string]interface{}) (bool, string) {
	if len(c.config.RequiredOutputKeys) == 0 {
		return true, "required_outputs:skipped"
	}

	var missing []string
	for _, key := range c.config.RequiredOutputKeys {
		if _, ok := outputs[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return false, "required_outputs:missing=" + strings.Join(missing, ",")
	}
	return true, "required_outputs:passed"
}

// gateOutputValidation requires every present output value to be
// non-nil and, for strings, non-blank after trimming whitespace.
func gateOutputValidation(outputs map[string]interface{}) (bool, string) {
	var invalid []string
	for key, value := range outputs {
		if value == nil {
			invalid = append(invalid, key)
		} else if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		// Map iteration order is random; sort for a stable reason code.
		sort.Strings(invalid)
		return false, "output_validation:invalid=" + strings.Join(invalid, ",")
	}
	return true, "output_validation:passed"
}

// gateApproval is the optional last gate: an explicit approved flag
// must be truthy.
func (c *AdherenceContract) gateApproval(outputs map[string]interface{}) (bool, string) {
	if !c.config.RequireApproval {
		return true, "approval:skipped"
	}

	if isTruthy(outputs["approved"]) {
		return true, "approval:passed"
	}
	return false, "approval:failed"
}

// isTruthy reports whether an arbitrary decoded JSON value counts as
// true. Mirrors the dynamic-payload conventions the contract was
// designed for: nil, false, zero numbers, empty strings, and empty
// containers are falsy. Malformed flags must degrade to gate failures,
// never to billable outcomes.
func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}
