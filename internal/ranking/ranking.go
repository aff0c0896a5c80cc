// Package ranking orders candidate cards for a transaction by net value.
package ranking

import (
	"slices"
	"sort"
	"strings"
	"time"

	"card-rewards-api/internal/models"
	"card-rewards-api/internal/rewards"
)

// Engine ranks cards. The zero value is ready to use and evaluates undated
// transactions at the current time.
type Engine struct {
	Now func() time.Time
}

// Rank evaluates every eligible card against txn and returns them best first.
func Rank(cards []models.CreditCard, txn models.Transaction, prefs models.Preferences) models.RankingResult {
	return Engine{}.Rank(cards, txn, prefs)
}

// Rank evaluates every eligible card against txn and returns them best first.
// Inactive cards, excluded cards, cards above the annual fee ceiling and cards
// whose reward unit is not preferred are dropped before ordering.
func (e Engine) Rank(cards []models.CreditCard, txn models.Transaction, prefs models.Preferences) models.RankingResult {
	// Undated transactions are judged against a single instant for every card.
	if txn.Date.IsZero() {
		txn.Date = txn.EffectiveDate(e.Now)
	}
	opts := rewards.Options{Now: e.Now, MonthlySpending: prefs.MonthlySpending}

	recs := make([]models.Recommendation, 0, len(cards))
	for _, card := range cards {
		if !card.IsActive || slices.Contains(prefs.ExcludedCardIDs, card.ID) {
			continue
		}
		if prefs.MaxAnnualFee != nil && card.Fees.AnnualFee.GreaterThan(*prefs.MaxAnnualFee) {
			continue
		}

		calc := rewards.Calculate(card, txn, opts)
		if len(prefs.PreferredRewardUnits) > 0 && !slices.Contains(prefs.PreferredRewardUnits, calc.RewardUnit) {
			continue
		}

		recs = append(recs, models.Recommendation{
			Card:        card,
			Calculation: calc,
			NetValue:    calc.RewardAmount.Sub(calc.Fees),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return less(recs[i], recs[j], prefs.PreferredIssuers)
	})

	for i := range recs {
		recs[i].Rank = i + 1
		recs[i].IsRecommended = i == 0
	}

	return models.RankingResult{
		Recommendations:   recs,
		HasRecommendation: len(recs) > 0,
	}
}

// less reports whether a ranks ahead of b: higher net value, then higher
// reward, then lower annual fee, then preferred issuer, then name.
func less(a, b models.Recommendation, preferredIssuers []string) bool {
	if c := a.NetValue.Cmp(b.NetValue); c != 0 {
		return c > 0
	}
	if c := a.Calculation.RewardAmount.Cmp(b.Calculation.RewardAmount); c != 0 {
		return c > 0
	}
	if c := a.Card.Fees.AnnualFee.Cmp(b.Card.Fees.AnnualFee); c != 0 {
		return c < 0
	}
	aPreferred := preferredIssuer(preferredIssuers, a.Card.Issuer)
	bPreferred := preferredIssuer(preferredIssuers, b.Card.Issuer)
	if aPreferred != bPreferred {
		return aPreferred
	}
	return a.Card.Name < b.Card.Name
}

// preferredIssuer matches issuer names without regard to case.
func preferredIssuer(preferred []string, issuer string) bool {
	return slices.ContainsFunc(preferred, func(p string) bool {
		return strings.EqualFold(p, issuer)
	})
}
