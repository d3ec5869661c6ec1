package fraud

import "github.com/shopspring/decimal"

// Reasons attached to an Assessment.
const (
	ReasonHighAmount        = "high_amount"
	ReasonUnsupportedRegion = "unsupported_region"
	ReasonInvalidAmount     = "invalid_amount"
)

const (
	baseScore               = 0.1
	highAmountWeight        = 0.4
	unsupportedRegionWeight = 0.3
	invalidAmountWeight     = 0.2

	blockThreshold  = 0.8
	reviewThreshold = 0.5
)

var highAmountLimit = decimal.NewFromInt(500)

// Decision is the action implied by a risk score.
type Decision string

const (
	DecisionPass   Decision = "pass"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

// Assessment is a risk score with the rule that drove it. Score is additive
// and is not clamped to [0, 1].
type Assessment struct {
	Score  float64
	Reason string
}

// Blocked reports whether the order must be rejected.
func (a Assessment) Blocked() bool {
	return a.Score >= blockThreshold
}

// NeedsReview reports whether the order must wait for a human.
func (a Assessment) NeedsReview() bool {
	return a.Score >= reviewThreshold && a.Score < blockThreshold
}

// Decision classifies the score.
func (a Assessment) Decision() Decision {
	switch {
	case a.Blocked():
		return DecisionBlock
	case a.NeedsReview():
		return DecisionReview
	default:
		return DecisionPass
	}
}

// DefaultRegions are the regions the business ships to without extra risk.
func DefaultRegions() []string {
	return []string{"US", "EU", "UK"}
}

// Scorer is a rule-based risk model keyed on order total and region.
type Scorer struct {
	supported map[string]struct{}
}

// NewScorer returns a Scorer that treats regions outside supported as risky.
func NewScorer(supported []string) *Scorer {
	m := make(map[string]struct{}, len(supported))
	for _, r := range supported {
		m[r] = struct{}{}
	}
	return &Scorer{supported: m}
}

// Score assesses an order. An invalid (non-positive) amount overrides any
// earlier reason.
func (s *Scorer) Score(total decimal.Decimal, region string) Assessment {
	a := Assessment{Score: baseScore}

	if total.GreaterThan(highAmountLimit) {
		a.Score += highAmountWeight
		a.Reason = ReasonHighAmount
	}

	if _, ok := s.supported[region]; !ok {
		a.Score += unsupportedRegionWeight
		if a.Reason != "" {
			a.Reason += "+" + ReasonUnsupportedRegion
		} else {
			a.Reason = ReasonUnsupportedRegion
		}
	}

	if !total.IsPositive() {
		a.Score += invalidAmountWeight
		a.Reason = ReasonInvalidAmount
	}

	return a
}
