package rules

import (
	"github.com/shopspring/decimal"

	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/session"
)

var hundred = decimal.NewFromInt(100)

// Facts is everything the checks look at for one checkout attempt
type Facts struct {
	Features    session.FeatureVector
	KnownDevice bool
	CartTotal   decimal.Decimal

	// Velocity over the trailing hour; VelocityKnown is false when the tracker was unavailable
	VelocityKnown  bool
	TxLastHour     int64
	AmountLastHour decimal.Decimal

	CompletedOrders   int64
	AverageOrderValue decimal.Decimal
}

// hit is one rule that matched within a signal category
type hit struct {
	rule     fraud.DetectionRule
	observed decimal.Decimal
}

// Evaluate runs every check against facts. Each signal category yields at
// most one flag, carried by its heaviest matching rule; the other matches
// are kept as evidence.
func Evaluate(rules fraud.RuleSet, f Facts) []fraud.Flag {
	var flags []fraud.Flag

	if f.VelocityKnown {
		hits := match(rules, []check{
			{fraud.RuleMaxTxPerHour, decimal.NewFromInt(f.TxLastHour), true},
			{fraud.RuleMaxAmountPerHour, f.AmountLastHour, true},
		})
		if top, ev := strongest(hits); ev != nil {
			ev["tx_last_hour"] = f.TxLastHour
			ev["amount_last_hour"] = f.AmountLastHour.String()
			flags = append(flags, fraud.NewVelocityFlag(top, ev))
		}
	}

	fv := f.Features
	var mechanical decimal.Decimal
	if fv.PointerMovementVariance != nil && fv.KeystrokeIntervalStdDev != nil {
		mechanical = decimal.NewFromFloat(max(*fv.PointerMovementVariance, *fv.KeystrokeIntervalStdDev))
	}
	var submit decimal.Decimal
	if fv.TimeToSubmitMs != nil {
		submit = decimal.NewFromInt(*fv.TimeToSubmitMs)
	}
	if top, ev := strongest(match(rules, []check{
		{fraud.RuleMechanicalInput, mechanical, fv.PointerMovementVariance != nil && fv.KeystrokeIntervalStdDev != nil},
		{fraud.RuleMinTimeToSubmit, submit, fv.TimeToSubmitMs != nil},
	})); ev != nil {
		flags = append(flags, fraud.NewBehavioralFlag(top, ev))
	}

	if top, ev := strongest(match(rules, []check{
		{fraud.RuleHeadlessBrowser, boolValue(fv.IsHeadlessSuspected), fv.IsHeadlessSuspected != nil},
		{fraud.RuleCookiesDisabled, boolValue(fv.CookiesEnabled), fv.CookiesEnabled != nil},
		{fraud.RuleNewDeviceHighValue, f.CartTotal, !f.KnownDevice},
	})); ev != nil {
		ev["known_device"] = f.KnownDevice
		flags = append(flags, fraud.NewDeviceFlag(top, ev))
	}

	var multiple decimal.Decimal
	hasAverage := f.AverageOrderValue.IsPositive()
	if hasAverage {
		multiple = f.CartTotal.Div(f.AverageOrderValue)
	}
	if top, ev := strongest(match(rules, []check{
		{fraud.RuleAmountAverageMultiple, multiple, hasAverage},
		{fraud.RuleRoundAmountFloor, f.CartTotal, isRound(f.CartTotal)},
	})); ev != nil {
		ev["cart_total"] = f.CartTotal.String()
		if hasAverage {
			ev["average_order_value"] = f.AverageOrderValue.StringFixed(2)
		}
		flags = append(flags, fraud.NewAmountFlag(top, ev))
	}

	if top, ev := strongest(match(rules, []check{
		{fraud.RuleFirstTransaction, decimal.NewFromInt(f.CompletedOrders), true},
	})); ev != nil {
		flags = append(flags, fraud.NewFirstTransactionFlag(top, ev))
	}

	return flags
}

type check struct {
	key       string
	observed  decimal.Decimal
	available bool
}

func match(rules fraud.RuleSet, checks []check) []hit {
	var hits []hit
	for _, c := range checks {
		if !c.available {
			continue
		}
		rule, ok := rules.Active(c.key)
		if !ok || !rule.Matches(c.observed) {
			continue
		}
		hits = append(hits, hit{rule: rule, observed: c.observed})
	}
	return hits
}

// strongest picks the most severe, then heaviest, hit and returns evidence
// listing every hit. Evidence is nil when nothing matched.
func strongest(hits []hit) (fraud.DetectionRule, map[string]any) {
	if len(hits) == 0 {
		return fraud.DetectionRule{}, nil
	}
	top := hits[0]
	matched := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		if h.rule.Severity.Rank() < top.rule.Severity.Rank() ||
			(h.rule.Severity == top.rule.Severity && h.rule.Weight > top.rule.Weight) {
			top = h
		}
		matched = append(matched, map[string]any{
			"rule_key":   h.rule.Key,
			"comparator": string(h.rule.Comparator),
			"threshold":  h.rule.ThresholdValue.String(),
			"observed":   h.observed.String(),
		})
	}
	return top.rule, map[string]any{"matched": matched}
}

func boolValue(b *bool) decimal.Decimal {
	if b != nil && *b {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}

func isRound(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Mod(hundred).IsZero()
}
