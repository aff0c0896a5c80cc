// Package rewards computes the reward and transaction fees a card earns on a purchase.
package rewards

import (
	"time"

	"github.com/shopspring/decimal"

	"card-rewards-api/internal/models"
	"card-rewards-api/internal/rules"
)

// Options carries per-request context into the calculation.
type Options struct {
	Now             func() time.Time
	MonthlySpending *decimal.Decimal
}

// Calculate folds every rule of card that matches txn into a single reward.
//
// A matching specific rule replaces the base rule; among several specific
// rules the highest rate wins and equal rates keep the earliest in card order.
// Without a specific rule the first matching base rule contributes. Every
// matching bonus rule stacks on top. A card with no matching rule earns zero.
func Calculate(card models.CreditCard, txn models.Transaction, opts Options) models.RewardCalculation {
	calc := models.RewardCalculation{
		CardID:        card.ID,
		RewardAmount:  decimal.Zero,
		RewardUnit:    models.UnitCash,
		EffectiveRate: decimal.Zero,
		AppliedRules:  []string{},
		RuleBreakdown: []models.RuleContribution{},
		Fees:          Fees(card, txn),
	}

	if txn.Date.IsZero() {
		txn.Date = txn.EffectiveDate(opts.Now)
	}
	matchOpts := rules.Options{Now: opts.Now, MonthlySpending: opts.MonthlySpending}
	var matching []models.RewardRule
	for _, rule := range card.Rewards {
		if rules.MatchesWith(rule, txn, matchOpts) {
			matching = append(matching, rule)
		}
	}
	if len(matching) == 0 {
		return calc
	}

	if unit := matching[0].Unit; unit != "" {
		calc.RewardUnit = unit
	}

	var base, specific *models.RewardRule
	var bonuses []models.RewardRule
	for i := range matching {
		rule := &matching[i]
		switch rule.Priority {
		case models.PrioritySpecific:
			if specific == nil || rule.Rate.GreaterThan(specific.Rate) {
				specific = rule
			}
		case models.PriorityBonus:
			bonuses = append(bonuses, *rule)
		default:
			if base == nil {
				base = rule
			}
		}
	}

	var contributions []models.RuleContribution
	switch {
	case specific != nil:
		contributions = append(contributions, contribute(*specific, models.ContributionReplaced, txn.Amount, opts.MonthlySpending))
	case base != nil:
		contributions = append(contributions, contribute(*base, models.ContributionBase, txn.Amount, opts.MonthlySpending))
	}
	for _, rule := range bonuses {
		contributions = append(contributions, contribute(rule, models.ContributionStacked, txn.Amount, opts.MonthlySpending))
	}

	for _, c := range contributions {
		calc.RewardAmount = calc.RewardAmount.Add(c.Amount)
		calc.EffectiveRate = calc.EffectiveRate.Add(c.Rate)
		calc.AppliedRules = append(calc.AppliedRules, c.RuleID)
		calc.CappedOut = calc.CappedOut || c.WasCapped
	}
	calc.RuleBreakdown = contributions

	return calc
}

// contribute computes one rule's share, applying the spending-cap fallback
// before the reward cap.
func contribute(rule models.RewardRule, kind models.ContributionType, amount decimal.Decimal, monthly *decimal.Decimal) models.RuleContribution {
	reward, rate, fellBack := ruleReward(rule, amount, monthly)

	c := models.RuleContribution{
		RuleID:           rule.ID,
		Rate:             rate,
		Amount:           reward,
		ContributionType: kind,
		FallbackApplied:  fellBack,
	}
	if rule.MaxRewardCap != nil && reward.GreaterThan(*rule.MaxRewardCap) {
		original := reward
		c.Amount = *rule.MaxRewardCap
		c.WasCapped = true
		c.OriginalAmount = &original
	}
	return c
}

// ruleReward splits amount into the spend still under the rule's monthly
// spending cap, earned at the rule rate, and the spend beyond it, earned at
// the fallback rate. The returned rate is the blend of the two bands.
func ruleReward(rule models.RewardRule, amount decimal.Decimal, monthly *decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	full := amount.Mul(rule.Rate)
	if !rule.HasSpendingCap() || !amount.IsPositive() {
		return full, rule.Rate, false
	}

	spent := decimal.Zero
	if monthly != nil {
		spent = *monthly
	}
	headroom := decimal.Max(rule.MonthlySpendingCap.Sub(spent), decimal.Zero)
	if amount.LessThanOrEqual(headroom) {
		return full, rule.Rate, false
	}

	over := amount.Sub(headroom)
	reward := headroom.Mul(rule.Rate).Add(over.Mul(*rule.FallbackRate))
	return reward, reward.Div(amount), true
}
