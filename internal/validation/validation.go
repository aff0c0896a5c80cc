package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/models"
)

var (
	cardIDRegex   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	maxRules  = 100
	maxAmount = decimal.NewFromInt(100_000_000)
	one       = decimal.NewFromInt(1)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateCard rejects card documents the engine must never see.
func ValidateCard(card catalog.CardDocument) error {
	if err := ValidateCardID(card.ID, "id"); err != nil {
		return err
	}

	if SanitizeString(card.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}

	if SanitizeString(card.Issuer) == "" {
		return &ValidationError{Field: "issuer", Message: "is required"}
	}

	if err := validateFees(card.Fees); err != nil {
		return err
	}

	if len(card.Rewards) == 0 {
		return &ValidationError{Field: "rewards", Message: "must contain at least one rule"}
	}

	if len(card.Rewards) > maxRules {
		return &ValidationError{
			Field:   "rewards",
			Message: fmt.Sprintf("cannot contain more than %d rules", maxRules),
		}
	}

	seen := make(map[string]bool)
	var unit string
	for i, rule := range card.Rewards {
		if err := validateRule(rule, fmt.Sprintf("rewards[%d]", i)); err != nil {
			return err
		}

		if rule.ID != "" {
			if seen[rule.ID] {
				return &ValidationError{
					Field:   "rewards",
					Message: fmt.Sprintf("duplicate rule id: %s", rule.ID),
				}
			}
			seen[rule.ID] = true
		}

		// Rules on one card stack into one total, so they must share a unit.
		ruleUnit := strings.ToLower(strings.TrimSpace(rule.RewardUnit))
		if unit == "" {
			unit = ruleUnit
		} else if ruleUnit != unit {
			return &ValidationError{
				Field:   fmt.Sprintf("rewards[%d].reward_unit", i),
				Message: fmt.Sprintf("must match the card's reward unit %q", unit),
			}
		}
	}

	return nil
}

func validateFees(fees catalog.FeesDocument) error {
	if fees.AnnualFee.IsNegative() {
		return &ValidationError{Field: "fees.annual_fee", Message: "must be non-negative"}
	}

	if rate := fees.ForeignTransactionFeeRate; rate != nil && !isFraction(*rate) {
		return &ValidationError{Field: "fees.foreign_transaction_fee_rate", Message: "must be between 0 and 1"}
	}

	if fee := fees.CashAdvanceFee; fee != nil && fee.IsNegative() {
		return &ValidationError{Field: "fees.cash_advance_fee", Message: "must be non-negative"}
	}

	if fee := fees.RedemptionFee; fee != nil && fee.IsNegative() {
		return &ValidationError{Field: "fees.redemption_fee", Message: "must be non-negative"}
	}

	return nil
}

func validateRule(rule catalog.RuleDocument, field string) error {
	if !isFraction(rule.RewardRate) {
		return &ValidationError{Field: field + ".reward_rate", Message: "must be between 0 and 1"}
	}

	switch models.RewardUnit(strings.ToLower(strings.TrimSpace(rule.RewardUnit))) {
	case models.UnitCash, models.UnitMiles, models.UnitPoints:
	default:
		return &ValidationError{Field: field + ".reward_unit", Message: "must be one of cash, miles, points"}
	}

	switch models.Priority(strings.ToLower(strings.TrimSpace(rule.Priority))) {
	case "", models.PriorityBase, models.PriorityBonus, models.PrioritySpecific:
	default:
		return &ValidationError{Field: field + ".priority", Message: "must be one of base, bonus, specific"}
	}

	if len(rule.Categories) == 0 && len(rule.SpecificMerchants) == 0 && len(rule.MerchantTypes) == 0 {
		return &ValidationError{
			Field:   field,
			Message: "must target at least one category or merchant",
		}
	}

	if err := validateValidity(rule, field); err != nil {
		return err
	}

	if limit := rule.MaxRewardCap; limit != nil && !limit.IsPositive() {
		return &ValidationError{Field: field + ".max_reward_cap", Message: "must be positive"}
	}

	if (rule.MonthlySpendingCap == nil) != (rule.FallbackRate == nil) {
		return &ValidationError{
			Field:   field + ".monthly_spending_cap",
			Message: "must be set together with fallback_rate",
		}
	}

	if limit := rule.MonthlySpendingCap; limit != nil && !limit.IsPositive() {
		return &ValidationError{Field: field + ".monthly_spending_cap", Message: "must be positive"}
	}

	if rate := rule.FallbackRate; rate != nil && !isFraction(*rate) {
		return &ValidationError{Field: field + ".fallback_rate", Message: "must be between 0 and 1"}
	}

	if rule.Conditions != nil {
		return validateConditions(*rule.Conditions, field+".conditions")
	}

	return nil
}

func validateValidity(rule catalog.RuleDocument, field string) error {
	var from, until time.Time
	var err error

	if rule.ValidFrom != "" {
		if from, err = ParseDate(rule.ValidFrom); err != nil {
			return &ValidationError{Field: field + ".valid_from", Message: "must be a YYYY-MM-DD date"}
		}
	}

	if rule.ValidUntil != "" {
		if until, err = ParseDate(rule.ValidUntil); err != nil {
			return &ValidationError{Field: field + ".valid_until", Message: "must be a YYYY-MM-DD date"}
		}
	}

	if !from.IsZero() && !until.IsZero() && until.Before(from) {
		return &ValidationError{Field: field + ".valid_until", Message: "must not be before valid_from"}
	}

	return nil
}

func validateConditions(c catalog.ConditionsDocument, field string) error {
	if c.PaymentType != "" {
		if _, err := parsePaymentType(c.PaymentType); err != nil {
			return &ValidationError{Field: field + ".payment_type", Message: err.Error()}
		}
	}

	if c.Currency != "" && !strings.EqualFold(c.Currency, catalog.CurrencyForeign) &&
		!currencyRegex.MatchString(strings.ToUpper(c.Currency)) {
		return &ValidationError{
			Field:   field + ".currency",
			Message: `must be a 3-letter currency code or "foreign"`,
		}
	}

	for i, code := range c.ExcludedCurrencies {
		if !currencyRegex.MatchString(strings.ToUpper(code)) {
			return &ValidationError{
				Field:   fmt.Sprintf("%s.excluded_currencies[%d]", field, i),
				Message: "must be a 3-letter currency code",
			}
		}
	}

	for i, day := range c.DayOfWeek {
		if day < 0 || day > 6 {
			return &ValidationError{
				Field:   fmt.Sprintf("%s.day_of_week[%d]", field, i),
				Message: "must be between 0 (Sunday) and 6 (Saturday)",
			}
		}
	}

	if c.MinAmount != nil && c.MinAmount.IsNegative() {
		return &ValidationError{Field: field + ".min_amount", Message: "must be non-negative"}
	}

	if c.MinAmount != nil && c.MaxAmount != nil && c.MaxAmount.LessThan(*c.MinAmount) {
		return &ValidationError{Field: field + ".max_amount", Message: "must not be less than min_amount"}
	}

	if c.MinMonthlySpending != nil && c.MinMonthlySpending.IsNegative() {
		return &ValidationError{Field: field + ".min_monthly_spending", Message: "must be non-negative"}
	}

	return nil
}

// ParseTransaction validates a wire transaction and returns it normalized
// the same way catalog rules are: lower-case identifiers, upper-case currency.
func ParseTransaction(req models.TransactionRequest) (models.Transaction, error) {
	if req.Amount.IsNegative() {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "must be non-negative"}
	}

	if req.Amount.GreaterThan(maxAmount) {
		return models.Transaction{}, &ValidationError{Field: "amount", Message: "exceeds maximum allowed amount"}
	}

	currency := strings.ToUpper(SanitizeString(req.Currency))
	if currency == "" {
		return models.Transaction{}, &ValidationError{Field: "currency", Message: "is required"}
	}
	if !currencyRegex.MatchString(currency) {
		return models.Transaction{}, &ValidationError{Field: "currency", Message: "must be a 3-letter currency code"}
	}

	paymentType := models.PaymentOffline
	if req.PaymentType != "" {
		pt, err := parsePaymentType(req.PaymentType)
		if err != nil {
			return models.Transaction{}, &ValidationError{Field: "payment_type", Message: err.Error()}
		}
		paymentType = pt
	}

	txn := models.Transaction{
		Amount:       req.Amount,
		Currency:     currency,
		Category:     strings.ToLower(SanitizeString(req.Category)),
		MerchantID:   strings.ToLower(SanitizeString(req.MerchantID)),
		MerchantType: strings.ToLower(SanitizeString(req.MerchantType)),
		PaymentType:  paymentType,
		Location:     strings.ToLower(SanitizeString(req.Location)),
	}

	if req.Date != "" {
		date, err := ParseDate(SanitizeString(req.Date))
		if err != nil {
			return models.Transaction{}, &ValidationError{Field: "date", Message: "must be YYYY-MM-DD or RFC3339"}
		}
		txn.Date = date
	}

	return txn, nil
}

// ParsePreferences validates wire preferences. A nil request yields no preferences.
func ParsePreferences(req *models.PreferencesRequest) (models.Preferences, error) {
	if req == nil {
		return models.Preferences{}, nil
	}

	prefs := models.Preferences{
		MaxAnnualFee:    req.MaxAnnualFee,
		MonthlySpending: req.MonthlySpending,
	}

	for _, id := range req.ExcludedCardIDs {
		prefs.ExcludedCardIDs = append(prefs.ExcludedCardIDs, strings.ToLower(SanitizeString(id)))
	}

	for _, issuer := range req.PreferredIssuers {
		prefs.PreferredIssuers = append(prefs.PreferredIssuers, SanitizeString(issuer))
	}

	for i, u := range req.PreferredRewardUnits {
		unit := models.RewardUnit(strings.ToLower(SanitizeString(u)))
		switch unit {
		case models.UnitCash, models.UnitMiles, models.UnitPoints:
			prefs.PreferredRewardUnits = append(prefs.PreferredRewardUnits, unit)
		default:
			return models.Preferences{}, &ValidationError{
				Field:   fmt.Sprintf("preferred_reward_units[%d]", i),
				Message: "must be one of cash, miles, points",
			}
		}
	}

	if prefs.MaxAnnualFee != nil && prefs.MaxAnnualFee.IsNegative() {
		return models.Preferences{}, &ValidationError{Field: "max_annual_fee", Message: "must be non-negative"}
	}

	if prefs.MonthlySpending != nil && prefs.MonthlySpending.IsNegative() {
		return models.Preferences{}, &ValidationError{Field: "monthly_spending", Message: "must be non-negative"}
	}

	return prefs, nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateCardID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !cardIDRegex.MatchString(id) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be lower-case letters, digits, '-' or '_'",
		}
	}

	return nil
}

// ParseDate accepts a YYYY-MM-DD date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parsePaymentType(s string) (models.PaymentType, error) {
	pt := models.PaymentType(strings.ToLower(strings.TrimSpace(s)))
	switch pt {
	case models.PaymentOnline, models.PaymentOffline, models.PaymentContactless, models.PaymentRecurring:
		return pt, nil
	}
	return "", fmt.Errorf("must be one of online, offline, contactless, recurring")
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}
