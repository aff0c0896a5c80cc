// Package rules decides whether a single reward rule applies to a transaction.
package rules

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"card-rewards-api/internal/models"
)

// Options carries the evaluation context a rule may depend on.
type Options struct {
	// Now supplies the evaluation time for transactions without a date.
	Now func() time.Time
	// MonthlySpending is the cardholder's spend so far this month. When nil,
	// minimum monthly spending conditions are treated as satisfied.
	MonthlySpending *decimal.Decimal
}

// Matches reports whether rule applies to txn, evaluated at the current time.
func Matches(rule models.RewardRule, txn models.Transaction) bool {
	return MatchesWith(rule, txn, Options{})
}

// MatchesWith reports whether rule applies to txn. Checks short-circuit in
// order: validity window, targeting, exclusions, conditions.
func MatchesWith(rule models.RewardRule, txn models.Transaction, opts Options) bool {
	date := txn.EffectiveDate(opts.Now)

	if !withinValidity(rule, date) {
		return false
	}
	if !targets(rule.Target, txn) {
		return false
	}
	if excluded(rule, txn) {
		return false
	}
	return conditionsHold(rule.Conditions, txn, date, opts.MonthlySpending)
}

// withinValidity compares YYYY-MM-DD strings, which order lexically.
func withinValidity(rule models.RewardRule, date time.Time) bool {
	day := date.Format(models.DateLayout)
	if rule.ValidFrom != "" && rule.ValidFrom > day {
		return false
	}
	if rule.ValidUntil != "" && rule.ValidUntil < day {
		return false
	}
	return true
}

func targets(target models.Target, txn models.Transaction) bool {
	if target.All {
		return true
	}
	if txn.MerchantID != "" && slices.Contains(target.Merchants, txn.MerchantID) {
		return true
	}
	if txn.Category != "" && slices.Contains(target.Categories, txn.Category) {
		return true
	}
	// Legacy merchantTypes are folded into Categories at ingestion.
	if txn.MerchantType != "" && slices.Contains(target.Categories, txn.MerchantType) {
		return true
	}
	return false
}

func excluded(rule models.RewardRule, txn models.Transaction) bool {
	if txn.Category != "" && slices.Contains(rule.ExcludedCategories, txn.Category) {
		return true
	}
	if txn.MerchantID != "" && slices.Contains(rule.ExcludedMerchants, txn.MerchantID) {
		return true
	}
	return false
}

func conditionsHold(c models.Conditions, txn models.Transaction, date time.Time, monthly *decimal.Decimal) bool {
	if c.PaymentType != nil && *c.PaymentType != txn.PaymentType {
		return false
	}
	if !currencyMatches(c.Currency, txn) {
		return false
	}
	if slices.Contains(c.ExcludedCurrencies, txn.Currency) {
		return false
	}
	if len(c.DaysOfWeek) > 0 && !slices.Contains(c.DaysOfWeek, date.Weekday()) {
		return false
	}
	if c.MinAmount != nil && txn.Amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && txn.Amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	if g := c.Geographic; g != nil && txn.Location != "" && slices.Contains(g.ExcludedRegions, txn.Location) {
		if !(g.OnlineExempt && txn.PaymentType == models.PaymentOnline) {
			return false
		}
	}
	if c.MinMonthlySpending != nil && monthly != nil && monthly.LessThan(*c.MinMonthlySpending) {
		return false
	}
	return true
}

func currencyMatches(f models.CurrencyFilter, txn models.Transaction) bool {
	switch f.Kind {
	case models.CurrencyForeign:
		return txn.IsForeign()
	case models.CurrencySpecific:
		return txn.Currency == f.Code
	default:
		return true
	}
}
