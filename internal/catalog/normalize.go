package catalog

import (
	"fmt"
	"strings"
	"time"

	"card-rewards-api/internal/models"
)

// Normalize translates a stored card into the engine's rule shape. Legacy
// fields are resolved here so matching never has to look at them:
// merchant_types fold into categories, is_cumulative maps to a priority, and
// the "all" and "foreign" sentinels become tagged values.
func Normalize(doc CardDocument) models.CreditCard {
	card := models.CreditCard{
		ID:       doc.ID,
		Name:     doc.Name,
		Issuer:   doc.Issuer,
		IsActive: doc.IsActive,
		Rewards:  make([]models.RewardRule, 0, len(doc.Rewards)),
		Fees: models.CardFees{
			AnnualFee:                 doc.Fees.AnnualFee,
			ForeignTransactionFeeRate: doc.Fees.ForeignTransactionFeeRate,
			CashAdvanceFee:            doc.Fees.CashAdvanceFee,
			RedemptionFee:             doc.Fees.RedemptionFee,
		},
	}

	if len(doc.RewardPrograms) > 0 {
		card.RewardPrograms = make(map[models.RewardUnit]string, len(doc.RewardPrograms))
		for unit, program := range doc.RewardPrograms {
			card.RewardPrograms[models.RewardUnit(strings.ToLower(unit))] = program
		}
	}

	for i, rule := range doc.Rewards {
		r := NormalizeRule(rule)
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s-%d", doc.ID, i+1)
		}
		card.Rewards = append(card.Rewards, r)
	}

	return card
}

// NormalizeAll normalizes every document in order.
func NormalizeAll(docs []CardDocument) []models.CreditCard {
	cards := make([]models.CreditCard, 0, len(docs))
	for _, doc := range docs {
		cards = append(cards, Normalize(doc))
	}
	return cards
}

// NormalizeRule translates a single rule document.
func NormalizeRule(doc RuleDocument) models.RewardRule {
	rule := models.RewardRule{
		ID:                 doc.ID,
		Description:        doc.Description,
		Rate:               doc.RewardRate,
		Unit:               normalizeUnit(doc.RewardUnit),
		Priority:           normalizePriority(doc.Priority, doc.IsCumulative),
		ExcludedCategories: lowerAll(doc.ExcludedCategories),
		ExcludedMerchants:  lowerAll(doc.ExcludedMerchants),
		ValidFrom:          normalizeDate(doc.ValidFrom),
		ValidUntil:         normalizeDate(doc.ValidUntil),
		MaxRewardCap:       doc.MaxRewardCap,
		MonthlySpendingCap: doc.MonthlySpendingCap,
		FallbackRate:       doc.FallbackRate,
		IsPromotional:      doc.IsPromotional,
	}

	for _, c := range append(lowerAll(doc.Categories), lowerAll(doc.MerchantTypes)...) {
		if c == CategoryAll {
			rule.Target.All = true
			continue
		}
		rule.Target.Categories = appendUnique(rule.Target.Categories, c)
	}
	for _, m := range lowerAll(doc.SpecificMerchants) {
		rule.Target.Merchants = appendUnique(rule.Target.Merchants, m)
	}

	if doc.Conditions != nil {
		rule.Conditions = normalizeConditions(*doc.Conditions)
	}

	return rule
}

func normalizeConditions(doc ConditionsDocument) models.Conditions {
	c := models.Conditions{
		ExcludedCurrencies: upperAll(doc.ExcludedCurrencies),
		MinAmount:          doc.MinAmount,
		MaxAmount:          doc.MaxAmount,
		MinMonthlySpending: doc.MinMonthlySpending,
	}

	if pt := strings.ToLower(strings.TrimSpace(doc.PaymentType)); pt != "" {
		paymentType := models.PaymentType(pt)
		c.PaymentType = &paymentType
	}

	switch currency := strings.TrimSpace(doc.Currency); {
	case currency == "":
		c.Currency = models.CurrencyFilter{Kind: models.CurrencyAny}
	case strings.EqualFold(currency, CurrencyForeign):
		c.Currency = models.CurrencyFilter{Kind: models.CurrencyForeign}
	default:
		c.Currency = models.CurrencyFilter{Kind: models.CurrencySpecific, Code: strings.ToUpper(currency)}
	}

	for _, d := range doc.DayOfWeek {
		c.DaysOfWeek = append(c.DaysOfWeek, time.Weekday(d))
	}

	if doc.Geographic != nil {
		c.Geographic = &models.Geographic{
			ExcludedRegions: lowerAll(doc.Geographic.ExcludedRegions),
			OnlineExempt:    doc.Geographic.OnlineExempt,
		}
	}

	return c
}

func normalizePriority(priority string, isCumulative *bool) models.Priority {
	switch models.Priority(strings.ToLower(strings.TrimSpace(priority))) {
	case models.PriorityBase:
		return models.PriorityBase
	case models.PriorityBonus:
		return models.PriorityBonus
	case models.PrioritySpecific:
		return models.PrioritySpecific
	}
	if isCumulative != nil && *isCumulative {
		return models.PriorityBonus
	}
	return models.PriorityBase
}

func normalizeUnit(unit string) models.RewardUnit {
	if u := strings.ToLower(strings.TrimSpace(unit)); u != "" {
		return models.RewardUnit(u)
	}
	return models.UnitCash
}

// normalizeDate keeps the YYYY-MM-DD prefix of a date or timestamp.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		return s[:len(models.DateLayout)]
	}
	return s
}

func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func upperAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
