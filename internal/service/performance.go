package service

import "calltracker/internal/model"

type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomeNeutral Outcome = "NEUTRAL"
)

// Performance returns the signed percentage gain of a call. The sign
// follows the call direction: a BUY gains when price rises, a SELL
// gains when price falls. It returns nil when entry is zero, never
// NaN or Inf.
func Performance(entry, current float64, action model.Action) *float64 {
	if entry == 0 {
		return nil
	}

	var pct float64
	switch action {
	case model.ActionSell:
		pct = (entry - current) / entry * 100
	default:
		pct = (current - entry) / entry * 100
	}
	return &pct
}

// ClassifyOutcome buckets a performance value against the neutral band:
// results within ±neutralThreshold percent count as neither win nor loss.
func ClassifyOutcome(performance, neutralThreshold float64) Outcome {
	if performance > neutralThreshold {
		return OutcomeWin
	}
	if performance < -neutralThreshold {
		return OutcomeLoss
	}
	return OutcomeNeutral
}
