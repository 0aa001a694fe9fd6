// Package alert decides which alert rules fire for a given quote.
package alert

import (
	"stock-tracker/internal/models"
)

// Evaluation is the outcome of checking one rule against one quote.
type Evaluation struct {
	Rule      models.AlertRule
	Triggered bool
}

// Evaluate checks every active rule against a fresh quote and reports
// which rules fire. Rules for other symbols and inactive rules never
// trigger. Threshold comparisons are inclusive: a quote exactly at the
// threshold fires. There is no hysteresis; a rule fires the first cycle
// its condition holds, and the caller deactivates it immediately so it
// cannot fire twice.
func Evaluate(quote *models.Quote, rules []models.AlertRule) []Evaluation {
	evaluations := make([]Evaluation, 0, len(rules))
	for _, rule := range rules {
		evaluations = append(evaluations, Evaluation{
			Rule:      rule,
			Triggered: triggered(quote, rule),
		})
	}
	return evaluations
}

func triggered(quote *models.Quote, rule models.AlertRule) bool {
	if !rule.Active || rule.Symbol != quote.Symbol {
		return false
	}

	switch rule.Kind {
	case models.AlertPriceAbove:
		return quote.Price >= rule.Threshold
	case models.AlertPriceBelow:
		return quote.Price <= rule.Threshold
	case models.AlertChangeAbove:
		return quote.ChangePercent >= rule.Threshold
	case models.AlertChangeBelow:
		return quote.ChangePercent <= rule.Threshold
	default:
		return false
	}
}
