package sim

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Outcome is a single simulated fill result.
type Outcome struct {
	Success bool
	// Jitter scales the estimated profit on success to model slippage and
	// partial fills. Ignored on failure.
	Jitter decimal.Decimal
}

// OutcomePolicy decides how a paper execution resolves.
type OutcomePolicy interface {
	Decide() Outcome
}

// RandomOutcomePolicy resolves executions by coin flip with a configurable
// success probability and a uniform profit jitter range.
type RandomOutcomePolicy struct {
	SuccessProbability float64
	JitterMin          float64
	JitterMax          float64
	rng                *rand.Rand
}

// NewRandomOutcomePolicy creates a policy seeded for reproducibility.
func NewRandomOutcomePolicy(successProbability, jitterMin, jitterMax float64, seed int64) *RandomOutcomePolicy {
	return &RandomOutcomePolicy{
		SuccessProbability: successProbability,
		JitterMin:          jitterMin,
		JitterMax:          jitterMax,
		rng:                rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomOutcomePolicy) Decide() Outcome {
	if p.rng.Float64() >= p.SuccessProbability {
		return Outcome{Success: false}
	}
	jitter := p.JitterMin + p.rng.Float64()*(p.JitterMax-p.JitterMin)
	return Outcome{Success: true, Jitter: decimal.NewFromFloat(jitter)}
}

// FixedOutcomePolicy always returns the same outcome. Used in tests to pin
// simulation results.
type FixedOutcomePolicy struct {
	Outcome Outcome
}

func (p FixedOutcomePolicy) Decide() Outcome { return p.Outcome }

var (
	_ OutcomePolicy = (*RandomOutcomePolicy)(nil)
	_ OutcomePolicy = FixedOutcomePolicy{}
)
