// Package risk implements the deterministic fraud rule engine.
//
// The engine is a pure function of the transaction features: no store access,
// no clock, no hidden state. Callers gather the features (swap history,
// velocity count) and the engine turns them into a verdict.
package risk

import (
	"fmt"
	"strings"

	"simtinel/internal/domain"
	"simtinel/pkg/config"

	"github.com/shopspring/decimal"
)

// Score floors per rule. The overall score is a running maximum, so adding a
// matched rule can never lower it.
const (
	scoreBaseline     = 0.10
	scoreSwap         = 0.90
	scoreVelocity     = 0.95
	scoreLargeAmount  = 0.75
	scoreSwapAndLarge = 0.99
)

// Input carries the features consulted by the rules. A zero Amount is valid
// and simply never triggers the large-amount rule.
type Input struct {
	Amount        decimal.Decimal
	HadRecentSwap bool
	VelocityCount int
}

// Verdict is the engine's output for one transaction.
type Verdict struct {
	Score    float64          `json:"risk_score"`
	Level    domain.RiskLevel `json:"risk_level"`
	Decision domain.Decision  `json:"decision"`
	Reasons  []string         `json:"reasons"`
	Summary  string           `json:"summary"`
}

type Engine struct {
	largeAmount       decimal.Decimal
	velocityThreshold int
	velocityWindow    string
}

func NewEngine(cfg config.FraudConfig) *Engine {
	return &Engine{
		largeAmount:       decimal.NewFromInt(cfg.LargeAmountThreshold),
		velocityThreshold: cfg.VelocityThreshold,
		velocityWindow:    fmt.Sprintf("%d minutes", int(cfg.VelocityWindow.Minutes())),
	}
}

// Evaluate runs the rule table over the input. Rules are evaluated in fixed
// order; the combined swap+large-amount rule always wins regardless of what
// matched before it.
func (e *Engine) Evaluate(in Input) Verdict {
	v := Verdict{
		Score:    scoreBaseline,
		Level:    domain.RiskLevelLow,
		Decision: domain.DecisionAllow,
	}

	largeAmount := in.Amount.GreaterThan(e.largeAmount)

	if in.HadRecentSwap {
		v.raise(scoreSwap, domain.RiskLevelCritical, domain.DecisionBlock)
		v.Reasons = append(v.Reasons, "Recent SIM swap detected on this account")
	}

	if in.VelocityCount >= e.velocityThreshold {
		v.raise(scoreVelocity, domain.RiskLevelCritical, domain.DecisionBlock)
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("High velocity: %d transactions in %s", in.VelocityCount, e.velocityWindow))
	}

	if largeAmount {
		v.Score = maxScore(v.Score, scoreLargeAmount)
		if v.Level == domain.RiskLevelLow {
			v.Level = domain.RiskLevelHigh
			v.Decision = domain.DecisionStepUp
		}
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("Large transaction: ₹%s exceeds threshold of ₹%s", in.Amount.String(), e.largeAmount.String()))
	}

	if in.HadRecentSwap && largeAmount {
		v.Score = scoreSwapAndLarge
		v.Level = domain.RiskLevelCritical
		v.Decision = domain.DecisionBlock
		v.Reasons = append(v.Reasons, "SIM swap + large transaction is a strong fraud signal")
	}

	if len(v.Reasons) == 0 {
		v.Reasons = append(v.Reasons, "No suspicious activity detected")
	}

	v.Summary = fmt.Sprintf("Transaction %s, risk %s", strings.ToLower(string(v.Decision)), v.Level)
	return v
}

// raise lifts score, level, and decision to at least the given values.
func (v *Verdict) raise(score float64, level domain.RiskLevel, decision domain.Decision) {
	v.Score = maxScore(v.Score, score)
	v.Level = level
	v.Decision = decision
}

func maxScore(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
