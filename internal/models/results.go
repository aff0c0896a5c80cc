package models

import "github.com/shopspring/decimal"

// ContributionType records how a matched rule entered the total.
type ContributionType string

const (
	ContributionBase     ContributionType = "base"
	ContributionStacked  ContributionType = "stacked"
	ContributionReplaced ContributionType = "replaced"
)

// RuleContribution explains one rule's share of a reward.
type RuleContribution struct {
	RuleID           string           `json:"rule_id"`
	Rate             decimal.Decimal  `json:"rate"`
	Amount           decimal.Decimal  `json:"amount"` // post-cap
	ContributionType ContributionType `json:"contribution_type"`
	WasCapped        bool             `json:"was_capped"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"` // pre-cap, only when capped
	FallbackApplied  bool             `json:"fallback_applied,omitempty"`
}

// RewardCalculation is the reward of one card for one transaction.
type RewardCalculation struct {
	CardID       string          `json:"card_id"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	RewardUnit   RewardUnit      `json:"reward_unit"`
	// EffectiveRate is the nominal stacked rate. It is not RewardAmount/Amount
	// and diverges from it when a cap or spending fallback applies.
	EffectiveRate decimal.Decimal    `json:"effective_rate"`
	AppliedRules  []string           `json:"applied_rules"`
	RuleBreakdown []RuleContribution `json:"rule_breakdown"`
	Fees          decimal.Decimal    `json:"fees"`
	CappedOut     bool               `json:"capped_out"`
}

// Preferences narrow and bias the ranking.
type Preferences struct {
	ExcludedCardIDs      []string
	PreferredRewardUnits []RewardUnit
	MaxAnnualFee         *decimal.Decimal
	PreferredIssuers     []string
	MonthlySpending      *decimal.Decimal
}

// Recommendation is one ranked card.
type Recommendation struct {
	Card          CreditCard
	Calculation   RewardCalculation
	NetValue      decimal.Decimal
	Rank          int
	IsRecommended bool
}

// RankingResult is the ordered output of the ranking engine.
type RankingResult struct {
	Recommendations   []Recommendation
	HasRecommendation bool
}
