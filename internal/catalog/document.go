// Package catalog holds the wire shape of card data and translates it into
// the normalized rules the engine evaluates.
package catalog

import "github.com/shopspring/decimal"

// Sentinels accepted in catalog documents.
const (
	CategoryAll     = "all"
	CurrencyForeign = "foreign"
)

// CardDocument is a card as edited by admins and stored in the catalog.
type CardDocument struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Issuer         string            `json:"issuer" yaml:"issuer"`
	IsActive       bool              `json:"is_active" yaml:"is_active"`
	Rewards        []RuleDocument    `json:"rewards" yaml:"rewards"`
	Fees           FeesDocument      `json:"fees" yaml:"fees"`
	RewardPrograms map[string]string `json:"reward_programs,omitempty" yaml:"reward_programs,omitempty"` // unit -> program name
}

// FeesDocument lists card fees.
type FeesDocument struct {
	AnnualFee                 decimal.Decimal  `json:"annual_fee" yaml:"annual_fee"`
	ForeignTransactionFeeRate *decimal.Decimal `json:"foreign_transaction_fee_rate,omitempty" yaml:"foreign_transaction_fee_rate,omitempty"`
	CashAdvanceFee            *decimal.Decimal `json:"cash_advance_fee,omitempty" yaml:"cash_advance_fee,omitempty"`
	RedemptionFee             *decimal.Decimal `json:"redemption_fee,omitempty" yaml:"redemption_fee,omitempty"`
}

// RuleDocument is a reward rule as stored, including deprecated fields.
type RuleDocument struct {
	ID          string          `json:"id" yaml:"id"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	RewardRate  decimal.Decimal `json:"reward_rate" yaml:"reward_rate"`
	RewardUnit  string          `json:"reward_unit" yaml:"reward_unit"`
	Priority    string          `json:"priority,omitempty" yaml:"priority,omitempty"`
	// Deprecated: use Priority.
	IsCumulative *bool `json:"is_cumulative,omitempty" yaml:"is_cumulative,omitempty"`

	Categories        []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	SpecificMerchants []string `json:"specific_merchants,omitempty" yaml:"specific_merchants,omitempty"`
	// Deprecated: use Categories.
	MerchantTypes []string `json:"merchant_types,omitempty" yaml:"merchant_types,omitempty"`

	ExcludedCategories []string `json:"excluded_categories,omitempty" yaml:"excluded_categories,omitempty"`
	ExcludedMerchants  []string `json:"excluded_merchants,omitempty" yaml:"excluded_merchants,omitempty"`

	Conditions *ConditionsDocument `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	ValidFrom  string `json:"valid_from,omitempty" yaml:"valid_from,omitempty"`
	ValidUntil string `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`

	MaxRewardCap       *decimal.Decimal `json:"max_reward_cap,omitempty" yaml:"max_reward_cap,omitempty"`
	MonthlySpendingCap *decimal.Decimal `json:"monthly_spending_cap,omitempty" yaml:"monthly_spending_cap,omitempty"`
	FallbackRate       *decimal.Decimal `json:"fallback_rate,omitempty" yaml:"fallback_rate,omitempty"`
	IsPromotional      bool             `json:"is_promotional,omitempty" yaml:"is_promotional,omitempty"`
}

// ConditionsDocument lists optional rule conditions.
type ConditionsDocument struct {
	PaymentType        string              `json:"payment_type,omitempty" yaml:"payment_type,omitempty"`
	Currency           string              `json:"currency,omitempty" yaml:"currency,omitempty"` // ISO code or "foreign"
	ExcludedCurrencies []string            `json:"excluded_currencies,omitempty" yaml:"excluded_currencies,omitempty"`
	DayOfWeek          []int               `json:"day_of_week,omitempty" yaml:"day_of_week,omitempty"` // 0 = Sunday
	MinAmount          *decimal.Decimal    `json:"min_amount,omitempty" yaml:"min_amount,omitempty"`
	MaxAmount          *decimal.Decimal    `json:"max_amount,omitempty" yaml:"max_amount,omitempty"`
	MinMonthlySpending *decimal.Decimal    `json:"min_monthly_spending,omitempty" yaml:"min_monthly_spending,omitempty"`
	Geographic         *GeographicDocument `json:"geographic,omitempty" yaml:"geographic,omitempty"`
}

// GeographicDocument lists regions a rule does not apply in.
type GeographicDocument struct {
	ExcludedRegions []string `json:"excluded_regions,omitempty" yaml:"excluded_regions,omitempty"`
	OnlineExempt    bool     `json:"online_exempt,omitempty" yaml:"online_exempt,omitempty"`
}

// File is the top-level shape of a catalog file.
type File struct {
	Cards []CardDocument `json:"cards" yaml:"cards"`
}
