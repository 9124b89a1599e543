package risk

import (
	"testing"
	"time"

	"simtinel/internal/domain"
	"simtinel/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return NewEngine(config.FraudConfig{
		LargeAmountThreshold: 50000,
		VelocityThreshold:    5,
		VelocityWindow:       10 * time.Minute,
		SwapLookback:         24 * time.Hour,
	})
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		input        Input
		wantScore    float64
		wantLevel    domain.RiskLevel
		wantDecision domain.Decision
		wantReasons  []string
	}{
		{
			name:         "clean transaction",
			input:        Input{Amount: decimal.NewFromInt(500)},
			wantScore:    0.10,
			wantLevel:    domain.RiskLevelLow,
			wantDecision: domain.DecisionAllow,
			wantReasons:  []string{"No suspicious activity detected"},
		},
		{
			name:         "recent swap alone",
			input:        Input{Amount: decimal.NewFromInt(500), HadRecentSwap: true},
			wantScore:    0.90,
			wantLevel:    domain.RiskLevelCritical,
			wantDecision: domain.DecisionBlock,
			wantReasons:  []string{"Recent SIM swap detected on this account"},
		},
		{
			name:         "velocity at threshold",
			input:        Input{Amount: decimal.NewFromInt(500), VelocityCount: 5},
			wantScore:    0.95,
			wantLevel:    domain.RiskLevelCritical,
			wantDecision: domain.DecisionBlock,
			wantReasons:  []string{"High velocity: 5 transactions in 10 minutes"},
		},
		{
			name:         "velocity below threshold",
			input:        Input{Amount: decimal.NewFromInt(500), VelocityCount: 4},
			wantScore:    0.10,
			wantLevel:    domain.RiskLevelLow,
			wantDecision: domain.DecisionAllow,
			wantReasons:  []string{"No suspicious activity detected"},
		},
		{
			name:         "large amount alone",
			input:        Input{Amount: decimal.NewFromInt(75000)},
			wantScore:    0.75,
			wantLevel:    domain.RiskLevelHigh,
			wantDecision: domain.DecisionStepUp,
			wantReasons:  []string{"Large transaction: ₹75000 exceeds threshold of ₹50000"},
		},
		{
			name:         "amount exactly at threshold does not trigger",
			input:        Input{Amount: decimal.NewFromInt(50000)},
			wantScore:    0.10,
			wantLevel:    domain.RiskLevelLow,
			wantDecision: domain.DecisionAllow,
			wantReasons:  []string{"No suspicious activity detected"},
		},
		{
			name:         "swap plus large amount forces combined verdict",
			input:        Input{Amount: decimal.NewFromInt(60000), HadRecentSwap: true},
			wantScore:    0.99,
			wantLevel:    domain.RiskLevelCritical,
			wantDecision: domain.DecisionBlock,
			wantReasons: []string{
				"Recent SIM swap detected on this account",
				"Large transaction: ₹60000 exceeds threshold of ₹50000",
				"SIM swap + large transaction is a strong fraud signal",
			},
		},
		{
			name:         "velocity plus large amount keeps block decision",
			input:        Input{Amount: decimal.NewFromInt(60000), VelocityCount: 7},
			wantScore:    0.95,
			wantLevel:    domain.RiskLevelCritical,
			wantDecision: domain.DecisionBlock,
			wantReasons: []string{
				"High velocity: 7 transactions in 10 minutes",
				"Large transaction: ₹60000 exceeds threshold of ₹50000",
			},
		},
		{
			name:         "all signals",
			input:        Input{Amount: decimal.NewFromInt(100000), HadRecentSwap: true, VelocityCount: 6},
			wantScore:    0.99,
			wantLevel:    domain.RiskLevelCritical,
			wantDecision: domain.DecisionBlock,
			wantReasons: []string{
				"Recent SIM swap detected on this account",
				"High velocity: 6 transactions in 10 minutes",
				"Large transaction: ₹100000 exceeds threshold of ₹50000",
				"SIM swap + large transaction is a strong fraud signal",
			},
		},
	}

	engine := testEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Evaluate(tt.input)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantDecision, got.Decision)
			assert.Equal(t, tt.wantReasons, got.Reasons)
		})
	}
}

func TestEvaluateSummary(t *testing.T) {
	engine := testEngine()

	v := engine.Evaluate(Input{Amount: decimal.NewFromInt(100), HadRecentSwap: true})
	require.Equal(t, "Transaction block, risk CRITICAL", v.Summary)

	v = engine.Evaluate(Input{Amount: decimal.NewFromInt(60000)})
	require.Equal(t, "Transaction step_up, risk HIGH", v.Summary)
}

func TestEvaluateCustomThresholds(t *testing.T) {
	engine := NewEngine(config.FraudConfig{
		LargeAmountThreshold: 1000,
		VelocityThreshold:    2,
		VelocityWindow:       5 * time.Minute,
	})

	v := engine.Evaluate(Input{Amount: decimal.NewFromInt(1500), VelocityCount: 2})
	assert.Equal(t, domain.RiskLevelCritical, v.Level)
	assert.Equal(t, domain.DecisionBlock, v.Decision)
	assert.Contains(t, v.Reasons, "High velocity: 2 transactions in 5 minutes")
	assert.Contains(t, v.Reasons, "Large transaction: ₹1500 exceeds threshold of ₹1000")
}
