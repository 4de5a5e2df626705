package fraud

import (
	"github.com/shopspring/decimal"
)

// Recommendation is the outcome returned to the checkout collaborator
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendBlock   Recommendation = "block"
)

// Flag is a triggered signal check. The set of variants is closed:
// only the types in this file implement it.
type Flag interface {
	Type() SignalType
	Severity() Severity
	Weight() int
	RuleKey() string
	RuleVersion() int
	Evidence() map[string]any
	isFlag()
}

type flag struct {
	rule     DetectionRule
	evidence map[string]any
}

func (f flag) Severity() Severity       { return f.rule.Severity }
func (f flag) Weight() int              { return f.rule.Weight }
func (f flag) RuleKey() string          { return f.rule.Key }
func (f flag) RuleVersion() int         { return f.rule.Version }
func (f flag) Evidence() map[string]any { return f.evidence }
func (f flag) isFlag()                  {}

// VelocityFlag fires on too many or too expensive checkouts in the trailing hour
type VelocityFlag struct{ flag }

// BehavioralFlag fires on mechanical or implausibly fast input
type BehavioralFlag struct{ flag }

// DeviceFlag fires on headless browsers, disabled cookies or unknown high-value devices
type DeviceFlag struct{ flag }

// AmountFlag fires on carts far above the user's norm or suspiciously round
type AmountFlag struct{ flag }

// FirstTransactionFlag fires when the user has no completed orders
type FirstTransactionFlag struct{ flag }

func (VelocityFlag) Type() SignalType         { return SignalVelocity }
func (BehavioralFlag) Type() SignalType       { return SignalBehavioral }
func (DeviceFlag) Type() SignalType           { return SignalDevice }
func (AmountFlag) Type() SignalType           { return SignalAmount }
func (FirstTransactionFlag) Type() SignalType { return SignalFirstTransaction }

func NewVelocityFlag(rule DetectionRule, evidence map[string]any) VelocityFlag {
	return VelocityFlag{flag{rule, evidence}}
}

func NewBehavioralFlag(rule DetectionRule, evidence map[string]any) BehavioralFlag {
	return BehavioralFlag{flag{rule, evidence}}
}

func NewDeviceFlag(rule DetectionRule, evidence map[string]any) DeviceFlag {
	return DeviceFlag{flag{rule, evidence}}
}

func NewAmountFlag(rule DetectionRule, evidence map[string]any) AmountFlag {
	return AmountFlag{flag{rule, evidence}}
}

func NewFirstTransactionFlag(rule DetectionRule, evidence map[string]any) FirstTransactionFlag {
	return FirstTransactionFlag{flag{rule, evidence}}
}

// Thresholds split the 0-100 score into recommendations
type Thresholds struct {
	Review int `json:"review"`
	Block  int `json:"block"`
}

// DefaultThresholds returns approve below 30, block at 70 and above
func DefaultThresholds() Thresholds {
	return Thresholds{Review: 30, Block: 70}
}

// Recommend maps a clamped score to a recommendation
func (t Thresholds) Recommend(score int) Recommendation {
	switch {
	case score >= t.Block:
		return RecommendBlock
	case score >= t.Review:
		return RecommendReview
	default:
		return RecommendApprove
	}
}

// Contribution is the share one flag added to the final score
type Contribution struct {
	RuleKey  string          `json:"rule_key"`
	Type     SignalType      `json:"signal_type"`
	Severity Severity        `json:"severity"`
	Weight   int             `json:"weight"`
	Applied  decimal.Decimal `json:"applied"`
}

// Result is the outcome of aggregating triggered flags
type Result struct {
	Score          int            `json:"risk_score"`
	Recommendation Recommendation `json:"recommendation"`
	Reasons        []SignalType   `json:"reasons"`
	Contributions  []Contribution `json:"contributions"`
	Flags          []Flag         `json:"-"`
	Critical       bool           `json:"critical"`
}

var (
	hundred      = decimal.NewFromInt(100)
	trustDefault = decimal.NewFromInt(50)
)

// TrustDiscount returns the multiplier applied to non-critical weights.
// Only trust earned above the default reduces weight, down to one half at 100.
func TrustDiscount(trustScore int) decimal.Decimal {
	earned := decimal.NewFromInt(int64(trustScore)).Sub(trustDefault)
	if earned.IsNegative() {
		earned = decimal.Zero
	}
	return hundred.Sub(earned).Div(hundred)
}

// Aggregate folds triggered flags into a score and recommendation.
// Critical flags are never discounted and always force a block. The
// first-transaction flag is added after the trust discount, undiscounted.
func Aggregate(flags []Flag, trustScore int, thresholds Thresholds) *Result {
	discount := TrustDiscount(trustScore)
	result := &Result{
		Reasons:       make([]SignalType, 0, len(flags)),
		Contributions: make([]Contribution, 0, len(flags)),
		Flags:         flags,
	}

	total := decimal.Zero
	var firstTx []Flag
	for _, f := range flags {
		if _, ok := f.(FirstTransactionFlag); ok {
			firstTx = append(firstTx, f)
			continue
		}
		weight := decimal.NewFromInt(int64(f.Weight()))
		applied := weight
		if f.Severity() == SeverityCritical {
			result.Critical = true
		} else {
			applied = weight.Mul(discount)
		}
		total = total.Add(applied)
		result.add(f, applied)
	}
	for _, f := range firstTx {
		applied := decimal.NewFromInt(int64(f.Weight()))
		total = total.Add(applied)
		result.add(f, applied)
	}

	result.Score = clampScore(int(total.Round(0).IntPart()))
	result.Recommendation = thresholds.Recommend(result.Score)
	if result.Critical {
		result.Recommendation = RecommendBlock
	}
	return result
}

func (r *Result) add(f Flag, applied decimal.Decimal) {
	r.Contributions = append(r.Contributions, Contribution{
		RuleKey:  f.RuleKey(),
		Type:     f.Type(),
		Severity: f.Severity(),
		Weight:   f.Weight(),
		Applied:  applied,
	})
	for _, t := range r.Reasons {
		if t == f.Type() {
			return
		}
	}
	r.Reasons = append(r.Reasons, f.Type())
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
