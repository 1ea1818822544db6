// Copyright 2026 ctava-msft
// SPDX-License-Identifier: MIT

package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func passingEvidence() Evidence {
	return Evidence{
		Outputs: map[string]interface{}{
			"terminal_success": true,
			"result":           "ok",
		},
	}
}

func TestIntentResolutionGate(t *testing.T) {
	tests := []struct {
		name          string
		config        ContractConfig
		evidence      Evidence
		wantHandled   bool
		wantCode      string
	}{
		{
			name:        "skipped by default",
			config:      DefaultContractConfig(),
			evidence:    passingEvidence(),
			wantHandled: true,
			wantCode:    "intent_resolution:skipped",
		},
		{
			name:   "passes with score at threshold",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true},
				Scores:  map[string]float64{"intent_resolution": 3.0},
			},
			wantHandled: true,
			wantCode:    "intent_resolution:passed",
		},
		{
			name:   "fails with low score",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true},
				Scores:  map[string]float64{"intent_resolution": 2.0},
			},
			wantHandled: false,
			wantCode:    "intent_resolution:score_below_threshold=2.0",
		},
		{
			name:   "fails with fractional low score",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true},
				Scores:  map[string]float64{"intent_resolution": 2.5},
			},
			wantHandled: false,
			wantCode:    "intent_resolution:score_below_threshold=2.5",
		},
		{
			name:   "low score wins over explicit flag",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true, "intent_handled": true},
				Scores:  map[string]float64{"intent_resolution": 1.0},
			},
			wantHandled: false,
			wantCode:    "intent_resolution:score_below_threshold=1.0",
		},
		{
			name:   "passes with explicit flag",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true, "intent_handled": true},
			},
			wantHandled: true,
			wantCode:    "intent_resolution:passed",
		},
		{
			name:   "passes with query and response",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs:  map[string]interface{}{"terminal_success": true},
				Query:    "What time is it?",
				Response: "It is 9 AM.",
			},
			wantHandled: true,
			wantCode:    "intent_resolution:passed",
		},
		{
			name:   "fails with no intent evidence",
			config: ContractConfig{RequireIntentResolution: true},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true},
			},
			wantHandled: false,
			wantCode:    "intent_resolution:failed",
		},
		{
			name: "custom threshold",
			config: ContractConfig{
				RequireIntentResolution:   true,
				IntentResolutionThreshold: 4.5,
			},
			evidence: Evidence{
				Outputs: map[string]interface{}{"terminal_success": true},
				Scores:  map[string]float64{"intent_resolution": 4.0},
			},
			wantHandled: false,
			wantCode:    "intent_resolution:score_below_threshold=4.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := NewAdherenceContract(tt.config)
			intentHandled, _, reasonCodes := contract.Evaluate(tt.evidence)
			assert.Equal(t, tt.wantHandled, intentHandled)
			assert.Equal(t, tt.wantCode, reasonCodes[0])
		})
	}
}

func TestTerminalSuccessGate(t *testing.T) {
	tests := []struct {
		name     string
		outputs  map[string]interface{}
		wantPass bool
		wantCode string
	}{
		{
			name:     "passes with flag",
			outputs:  map[string]interface{}{"terminal_success": true},
			wantPass: true,
			wantCode: "terminal_success:passed",
		},
		{
			name:     "passes with status completed",
			outputs:  map[string]interface{}{"status": "Completed"},
			wantPass: true,
			wantCode: "terminal_success:passed",
		},
		{
			name:     "passes with status success",
			outputs:  map[string]interface{}{"status": "SUCCESS"},
			wantPass: true,
			wantCode: "terminal_success:passed",
		},
		{
			name:     "fails with no signal",
			outputs:  map[string]interface{}{"result": "something"},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "fails with wrong status",
			outputs:  map[string]interface{}{"status": "failed"},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "fails with non-string status",
			outputs:  map[string]interface{}{"status": 7},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "fails with false flag",
			outputs:  map[string]interface{}{"terminal_success": false},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "fails with empty list flag",
			outputs:  map[string]interface{}{"terminal_success": []interface{}{}},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "fails with empty object flag",
			outputs:  map[string]interface{}{"terminal_success": map[string]interface{}{}},
			wantPass: false,
			wantCode: "terminal_success:failed",
		},
		{
			name:     "passes with non-empty list flag",
			outputs:  map[string]interface{}{"terminal_success": []interface{}{"ok"}},
			wantPass: true,
			wantCode: "terminal_success:passed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := NewAdherenceContract(DefaultContractConfig())
			_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: tt.outputs})
			assert.Equal(t, tt.wantPass, adhered)
			assert.Equal(t, tt.wantCode, reasonCodes[1])
		})
	}
}

func TestRequiredOutputsGate(t *testing.T) {
	t.Run("passes when all keys present", func(t *testing.T) {
		contract := NewAdherenceContract(ContractConfig{
			RequiredOutputKeys: []string{"result", "summary"},
		})
		_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: map[string]interface{}{
			"terminal_success": true,
			"result":           "r",
			"summary":          "s",
		}})
		assert.True(t, adhered)
		assert.Equal(t, "required_outputs:passed", reasonCodes[2])
	})

	t.Run("fails listing all missing keys", func(t *testing.T) {
		contract := NewAdherenceContract(ContractConfig{
			RequiredOutputKeys: []string{"result", "summary"},
		})
		_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: map[string]interface{}{
			"terminal_success": true,
		}})
		assert.False(t, adhered)
		assert.Equal(t, "required_outputs:missing=result,summary", reasonCodes[2])
	})

	t.Run("skipped when list empty", func(t *testing.T) {
		contract := NewAdherenceContract(DefaultContractConfig())
		_, _, reasonCodes := contract.Evaluate(passingEvidence())
		assert.Equal(t, "required_outputs:skipped", reasonCodes[2])
	})
}

func TestOutputValidationGate(t *testing.T) {
	tests := []struct {
		name     string
		outputs  map[string]interface{}
		wantPass bool
		wantCode string
	}{
		{
			name:     "passes with valid values",
			outputs:  map[string]interface{}{"terminal_success": true, "result": "ok", "count": 3},
			wantPass: true,
			wantCode: "output_validation:passed",
		},
		{
			name:     "fails on nil value",
			outputs:  map[string]interface{}{"terminal_success": true, "result": nil},
			wantPass: false,
			wantCode: "output_validation:invalid=result",
		},
		{
			name:     "fails on empty string",
			outputs:  map[string]interface{}{"terminal_success": true, "result": ""},
			wantPass: false,
			wantCode: "output_validation:invalid=result",
		},
		{
			name:     "fails on whitespace-only string",
			outputs:  map[string]interface{}{"terminal_success": true, "result": "   \t"},
			wantPass: false,
			wantCode: "output_validation:invalid=result",
		},
		{
			name:     "lists all offending keys sorted",
			outputs:  map[string]interface{}{"terminal_success": true, "b": nil, "a": " "},
			wantPass: false,
			wantCode: "output_validation:invalid=a,b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := NewAdherenceContract(DefaultContractConfig())
			_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: tt.outputs})
			assert.Equal(t, tt.wantPass, adhered)
			assert.Equal(t, tt.wantCode, reasonCodes[3])
		})
	}
}

func TestApprovalGate(t *testing.T) {
	t.Run("skipped by default", func(t *testing.T) {
		contract := NewAdherenceContract(DefaultContractConfig())
		_, _, reasonCodes := contract.Evaluate(passingEvidence())
		assert.Equal(t, "approval:skipped", reasonCodes[4])
	})

	t.Run("passes with approved flag", func(t *testing.T) {
		contract := NewAdherenceContract(ContractConfig{RequireApproval: true})
		_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: map[string]interface{}{
			"terminal_success": true,
			"approved":         true,
		}})
		assert.True(t, adhered)
		assert.Equal(t, "approval:passed", reasonCodes[4])
	})

	t.Run("fails without approved flag", func(t *testing.T) {
		contract := NewAdherenceContract(ContractConfig{RequireApproval: true})
		_, adhered, reasonCodes := contract.Evaluate(passingEvidence())
		assert.False(t, adhered)
		assert.Equal(t, "approval:failed", reasonCodes[4])
	})

	t.Run("fails with empty list approved flag", func(t *testing.T) {
		contract := NewAdherenceContract(ContractConfig{RequireApproval: true})
		_, adhered, reasonCodes := contract.Evaluate(Evidence{Outputs: map[string]interface{}{
			"terminal_success": true,
			"approved":         []interface{}{},
		}})
		assert.False(t, adhered)
		assert.Equal(t, "approval:failed", reasonCodes[4])
	})
}

func TestAllGatesAlwaysRun(t *testing.T) {
	// Evidence failing every active gate must still yield all five codes.
	contract := NewAdherenceContract(ContractConfig{
		RequiredOutputKeys:      []string{"result"},
		RequireApproval:         true,
		RequireIntentResolution: true,
	})
	intentHandled, adhered, reasonCodes := contract.Evaluate(Evidence{
		Outputs: map[string]interface{}{"garbage": nil},
	})

	assert.False(t, intentHandled)
	assert.False(t, adhered)
	assert.Len(t, reasonCodes, 5)
	assert.Equal(t, []string{
		"intent_resolution:failed",
		"terminal_success:failed",
		"required_outputs:missing=result",
		"output_validation:invalid=garbage",
		"approval:failed",
	}, reasonCodes)
}

func TestPassingPayloadAdheres(t *testing.T) {
	contract := NewAdherenceContract(DefaultContractConfig())
	intentHandled, adhered, reasonCodes := contract.Evaluate(passingEvidence())

	assert.True(t, intentHandled)
	assert.True(t, adhered)
	assert.Len(t, reasonCodes, 5)
	for _, code := range reasonCodes {
		assert.NotContains(t, code, "failed")
	}
}

func TestDeterministicOutcome(t *testing.T) {
	contract := NewAdherenceContract(ContractConfig{
		RequiredOutputKeys:      []string{"result"},
		RequireIntentResolution: true,
	})
	evidence := Evidence{
		Outputs: map[string]interface{}{"status": "completed", "result": "r"},
		Scores:  map[string]float64{"intent_resolution": 4.2},
	}

	firstIntent, firstAdhered, firstCodes := contract.Evaluate(evidence)
	for i := 0; i < 100; i++ {
		intent, adhered, codes := contract.Evaluate(evidence)
		assert.Equal(t, firstIntent, intent)
		assert.Equal(t, firstAdhered, adhered)
		assert.Equal(t, firstCodes, codes)
	}
}
