package fraud

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rule keys understood by the scoring engine
const (
	RuleMaxTxPerHour          = "max_tx_per_hour"
	RuleMaxAmountPerHour      = "max_amount_per_hour"
	RuleMechanicalInput       = "mechanical_input_epsilon"
	RuleMinTimeToSubmit       = "min_time_to_submit_ms"
	RuleHeadlessBrowser       = "headless_browser"
	RuleCookiesDisabled       = "cookies_disabled"
	RuleNewDeviceHighValue    = "new_device_high_value"
	RuleAmountAverageMultiple = "amount_avg_multiplier"
	RuleRoundAmountFloor      = "round_amount_floor"
	RuleFirstTransaction      = "first_transaction"
)

// Comparator defines how an observed value is compared against a rule threshold
type Comparator string

const (
	ComparatorGT  Comparator = "gt"
	ComparatorGTE Comparator = "gte"
	ComparatorLT  Comparator = "lt"
	ComparatorLTE Comparator = "lte"
	ComparatorEQ  Comparator = "eq"
)

// Valid reports whether c is a known comparator
func (c Comparator) Valid() bool {
	switch c {
	case ComparatorGT, ComparatorGTE, ComparatorLT, ComparatorLTE, ComparatorEQ:
		return true
	}
	return false
}

// DetectionRule is a tunable threshold for one signal check.
// Rules are read-only to scoring and changed by administrators.
type DetectionRule struct {
	Key            string          `json:"rule_key"`
	Description    string          `json:"description"`
	Comparator     Comparator      `json:"comparator"`
	ThresholdValue decimal.Decimal `json:"threshold_value"`
	Weight         int             `json:"weight"`
	Severity       Severity        `json:"severity"`
	IsActive       bool            `json:"is_active"`
	Version        int             `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Matches compares an observed value against the rule threshold
func (r DetectionRule) Matches(observed decimal.Decimal) bool {
	switch r.Comparator {
	case ComparatorGT:
		return observed.GreaterThan(r.ThresholdValue)
	case ComparatorGTE:
		return observed.GreaterThanOrEqual(r.ThresholdValue)
	case ComparatorLT:
		return observed.LessThan(r.ThresholdValue)
	case ComparatorLTE:
		return observed.LessThanOrEqual(r.ThresholdValue)
	case ComparatorEQ:
		return observed.Equal(r.ThresholdValue)
	}
	return false
}

// Validate checks a rule before it is stored
func (r DetectionRule) Validate() error {
	if r.Key == "" {
		return ErrRuleConfigInvalid
	}
	if !r.Comparator.Valid() {
		return ErrInvalidComparator
	}
	if !r.Severity.Valid() {
		return ErrInvalidRuleSeverity
	}
	if r.Weight < 0 || r.Weight > 100 {
		return ErrInvalidWeight
	}
	return nil
}

// RuleSet is an immutable snapshot of rules keyed by rule key
type RuleSet map[string]DetectionRule

// NewRuleSet indexes rules by key
func NewRuleSet(rules []DetectionRule) RuleSet {
	set := make(RuleSet, len(rules))
	for _, r := range rules {
		set[r.Key] = r
	}
	return set
}

// Active returns the rule for key if it exists and is enabled
func (s RuleSet) Active(key string) (DetectionRule, bool) {
	r, ok := s[key]
	if !ok || !r.IsActive {
		return DetectionRule{}, false
	}
	return r, true
}

// DefaultRules is the seed rule set used when the store is empty
func DefaultRules() []DetectionRule {
	now := time.Now().UTC()
	rule := func(key, desc string, cmp Comparator, threshold string, weight int, sev Severity) DetectionRule {
		return DetectionRule{
			Key:            key,
			Description:    desc,
			Comparator:     cmp,
			ThresholdValue: decimal.RequireFromString(threshold),
			Weight:         weight,
			Severity:       sev,
			IsActive:       true,
			Version:        1,
			UpdatedAt:      now,
		}
	}

	return []DetectionRule{
		rule(RuleMaxTxPerHour, "Checkout attempts in the trailing hour", ComparatorGT, "5", 40, SeverityWarning),
		rule(RuleMaxAmountPerHour, "Checkout amount in the trailing hour", ComparatorGT, "1000", 40, SeverityWarning),
		rule(RuleMechanicalInput, "Pointer variance and keystroke stddev both near zero", ComparatorLTE, "0.5", 35, SeverityWarning),
		rule(RuleMinTimeToSubmit, "Form submitted faster than a human plausibly can", ComparatorLT, "1500", 30, SeverityWarning),
		rule(RuleHeadlessBrowser, "Headless browser indicators present", ComparatorEQ, "1", 70, SeverityCritical),
		rule(RuleCookiesDisabled, "Cookies disabled in the browser", ComparatorEQ, "0", 15, SeverityInformational),
		rule(RuleNewDeviceHighValue, "Unknown device with cart above threshold", ComparatorGT, "200", 25, SeverityWarning),
		rule(RuleAmountAverageMultiple, "Cart above multiple of the 90-day average order value", ComparatorGT, "10", 35, SeverityWarning),
		rule(RuleRoundAmountFloor, "Round-number cart above floor", ComparatorGT, "500", 20, SeverityInformational),
		rule(RuleFirstTransaction, "No prior completed orders", ComparatorEQ, "0", 15, SeverityInformational),
	}
}

// RuleStats aggregates reviewer outcomes for signals raised by one rule.
// Rates are reported for manual tuning and never fed back automatically.
type RuleStats struct {
	RuleKey        string `json:"rule_key"`
	Confirmed      int64  `json:"confirmed"`
	FalsePositives int64  `json:"false_positives"`
}

// FalsePositiveRate returns false positives over all resolved signals
func (s RuleStats) FalsePositiveRate() float64 {
	total := s.Confirmed + s.FalsePositives
	if total == 0 {
		return 0
	}
	return float64(s.FalsePositives) / float64(total)
}
