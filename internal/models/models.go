package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HomeCurrency is the reference currency against which "foreign" is defined.
const HomeCurrency = "HKD"

// DateLayout is the layout of rule validity bounds.
const DateLayout = "2006-01-02"

// RewardUnit is the currency a reward is paid in.
type RewardUnit string

const (
	UnitCash   RewardUnit = "cash"
	UnitMiles  RewardUnit = "miles"
	UnitPoints RewardUnit = "points"
)

// Priority is the conflict-resolution role of a rule.
type Priority string

const (
	PriorityBase     Priority = "base"     // foundation rate
	PriorityBonus    Priority = "bonus"    // always stacks on top
	PrioritySpecific Priority = "specific" // replaces base
)

// PaymentType is how the card is presented.
type PaymentType string

const (
	PaymentOnline      PaymentType = "online"
	PaymentOffline     PaymentType = "offline"
	PaymentContactless PaymentType = "contactless"
	PaymentRecurring   PaymentType = "recurring"
)

// Transaction is a single purchase to evaluate. It is never mutated by the engine.
type Transaction struct {
	Amount       decimal.Decimal // 0 means unparsed
	Currency     string          // ISO 4217, upper case
	Category     string          // e.g. "dining"
	MerchantID   string          // e.g. "mcdonalds"
	MerchantType string          // deprecated, matched against legacy merchantTypes
	PaymentType  PaymentType
	Location     string    // country or region
	Date         time.Time // zero means evaluation time
}

// IsForeign reports whether the transaction is in a currency other than HomeCurrency.
// An unset currency is treated as home.
func (t Transaction) IsForeign() bool {
	return t.Currency != "" && t.Currency != HomeCurrency
}

// EffectiveDate returns the transaction date, or now when the date is unset.
func (t Transaction) EffectiveDate(now func() time.Time) time.Time {
	if !t.Date.IsZero() {
		return t.Date
	}
	if now == nil {
		return time.Now()
	}
	return now()
}

// CreditCard is a card product with its reward rules.
type CreditCard struct {
	ID             string
	Name           string
	Issuer         string
	IsActive       bool
	Rewards        []RewardRule
	Fees           CardFees
	RewardPrograms map[RewardUnit]string // display only
}

// CardFees are card-level fees. Only the foreign transaction rate is charged per transaction.
type CardFees struct {
	AnnualFee                 decimal.Decimal
	ForeignTransactionFeeRate *decimal.Decimal
	CashAdvanceFee            *decimal.Decimal
	RedemptionFee             *decimal.Decimal
}

// Target selects which purchases a rule applies to.
// When All is set the category and merchant sets are ignored.
type Target struct {
	All        bool
	Categories []string
	Merchants  []string
}

// IsEmpty reports whether the target can never match.
func (t Target) IsEmpty() bool {
	return !t.All && len(t.Categories) == 0 && len(t.Merchants) == 0
}

// CurrencyFilterKind discriminates CurrencyFilter.
type CurrencyFilterKind int

const (
	CurrencyAny CurrencyFilterKind = iota
	CurrencyForeign
	CurrencySpecific
)

// CurrencyFilter restricts a rule to a currency class.
type CurrencyFilter struct {
	Kind CurrencyFilterKind
	Code string // set for CurrencySpecific
}

// Geographic excludes regions, optionally exempting online purchases.
type Geographic struct {
	ExcludedRegions []string
	OnlineExempt    bool
}

// Conditions are optional constraints; every present condition must hold.
type Conditions struct {
	PaymentType        *PaymentType
	Currency           CurrencyFilter
	ExcludedCurrencies []string
	DaysOfWeek         []time.Weekday
	MinAmount          *decimal.Decimal
	MaxAmount          *decimal.Decimal
	MinMonthlySpending *decimal.Decimal
	Geographic         *Geographic
}

// RewardRule is the normalized rule shape the engine evaluates.
type RewardRule struct {
	ID                 string
	Description        string
	Rate               decimal.Decimal // decimal fraction, 0.02 = 2%
	Unit               RewardUnit
	Priority           Priority
	Target             Target
	ExcludedCategories []string
	ExcludedMerchants  []string
	Conditions         Conditions
	ValidFrom          string // YYYY-MM-DD, inclusive
	ValidUntil         string // YYYY-MM-DD, inclusive
	MaxRewardCap       *decimal.Decimal
	MonthlySpendingCap *decimal.Decimal
	FallbackRate       *decimal.Decimal
	IsPromotional      bool
}

// HasSpendingCap reports whether the rule falls back to another rate past a monthly spend.
func (r RewardRule) HasSpendingCap() bool {
	return r.MonthlySpendingCap != nil && r.FallbackRate != nil
}
