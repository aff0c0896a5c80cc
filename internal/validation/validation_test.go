package validation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/models"
)

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func validCard() catalog.CardDocument {
	return catalog.CardDocument{
		ID:       "hsbc-red",
		Name:     "HSBC Red",
		Issuer:   "HSBC",
		IsActive: true,
		Fees:     catalog.FeesDocument{AnnualFee: decimal.Zero, ForeignTransactionFeeRate: dp("0.0195")},
		Rewards: []catalog.RuleDocument{
			{ID: "base", RewardRate: decimal.RequireFromString("0.004"), RewardUnit: "cash", Priority: "base", Categories: []string{"all"}},
			{
				ID:                 "online",
				RewardRate:         decimal.RequireFromString("0.04"),
				RewardUnit:         "cash",
				Priority:           "specific",
				Categories:         []string{"online"},
				MonthlySpendingCap: dp("10000"),
				FallbackRate:       dp("0.004"),
				ValidFrom:          "2025-01-01",
				ValidUntil:         "2025-12-31",
			},
		},
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Field
}

func TestValidateCard_Valid(t *testing.T) {
	assert.NoError(t, ValidateCard(validCard()))
}

func TestValidateCard_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.CardDocument)
		field  string
	}{
		{"missing id", func(c *catalog.CardDocument) { c.ID = "" }, "id"},
		{"upper-case id", func(c *catalog.CardDocument) { c.ID = "HSBC Red" }, "id"},
		{"missing name", func(c *catalog.CardDocument) { c.Name = "  " }, "name"},
		{"missing issuer", func(c *catalog.CardDocument) { c.Issuer = "" }, "issuer"},
		{"negative annual fee", func(c *catalog.CardDocument) { c.Fees.AnnualFee = decimal.NewFromInt(-1) }, "fees.annual_fee"},
		{"fx rate above one", func(c *catalog.CardDocument) { c.Fees.ForeignTransactionFeeRate = dp("1.5") }, "fees.foreign_transaction_fee_rate"},
		{"no rules", func(c *catalog.CardDocument) { c.Rewards = nil }, "rewards"},
		{"duplicate rule id", func(c *catalog.CardDocument) { c.Rewards[1].ID = "base" }, "rewards"},
		{"rate above one", func(c *catalog.CardDocument) { c.Rewards[0].RewardRate = decimal.NewFromInt(2) }, "rewards[0].reward_rate"},
		{"negative rate", func(c *catalog.CardDocument) { c.Rewards[0].RewardRate = decimal.NewFromInt(-1) }, "rewards[0].reward_rate"},
		{"unknown unit", func(c *catalog.CardDocument) { c.Rewards[0].RewardUnit = "stars" }, "rewards[0].reward_unit"},
		{"mixed units", func(c *catalog.CardDocument) { c.Rewards[1].RewardUnit = "miles" }, "rewards[1].reward_unit"},
		{"unknown priority", func(c *catalog.CardDocument) { c.Rewards[0].Priority = "urgent" }, "rewards[0].priority"},
		{"no targeting", func(c *catalog.CardDocument) { c.Rewards[0].Categories = nil }, "rewards[0]"},
		{"bad valid_from", func(c *catalog.CardDocument) { c.Rewards[1].ValidFrom = "01/01/2025" }, "rewards[1].valid_from"},
		{"inverted window", func(c *catalog.CardDocument) { c.Rewards[1].ValidUntil = "2024-12-31" }, "rewards[1].valid_until"},
		{"zero reward cap", func(c *catalog.CardDocument) { c.Rewards[0].MaxRewardCap = dp("0") }, "rewards[0].max_reward_cap"},
		{"cap without fallback", func(c *catalog.CardDocument) { c.Rewards[1].FallbackRate = nil }, "rewards[1].monthly_spending_cap"},
		{"fallback above one", func(c *catalog.CardDocument) { c.Rewards[1].FallbackRate = dp("1.1") }, "rewards[1].fallback_rate"},
		{
			"bad condition currency",
			func(c *catalog.CardDocument) { c.Rewards[0].Conditions = &catalog.ConditionsDocument{Currency: "dollars"} },
			"rewards[0].conditions.currency",
		},
		{
			"bad day of week",
			func(c *catalog.CardDocument) { c.Rewards[0].Conditions = &catalog.ConditionsDocument{DayOfWeek: []int{7}} },
			"rewards[0].conditions.day_of_week[0]",
		},
		{
			"inverted amount range",
			func(c *catalog.CardDocument) {
				c.Rewards[0].Conditions = &catalog.ConditionsDocument{MinAmount: dp("500"), MaxAmount: dp("100")}
			},
			"rewards[0].conditions.max_amount",
		},
		{
			"bad payment type",
			func(c *catalog.CardDocument) { c.Rewards[0].Conditions = &catalog.ConditionsDocument{PaymentType: "cheque"} },
			"rewards[0].conditions.payment_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			err := ValidateCard(card)
			require.Error(t, err)
			assert.Equal(t, tt.field, fieldOf(t, err))
		})
	}
}

func TestValidateCard_TooManyRules(t *testing.T) {
	card := validCard()
	card.Rewards = nil
	for i := 0; i <= maxRules; i++ {
		card.Rewards = append(card.Rewards, catalog.RuleDocument{
			ID:         fmt.Sprintf("r%d", i),
			RewardRate: decimal.RequireFromString("0.01"),
			RewardUnit: "cash",
			Categories: []string{"all"},
		})
	}

	assert.Equal(t, "rewards", fieldOf(t, ValidateCard(card)))
}

func TestValidateCard_ForeignAndLegacyAccepted(t *testing.T) {
	cumulative := true
	card := validCard()
	card.Rewards = append(card.Rewards, catalog.RuleDocument{
		RewardRate:    decimal.RequireFromString("0.01"),
		RewardUnit:    "CASH",
		IsCumulative:  &cumulative,
		MerchantTypes: []string{"supermarket"},
		Conditions:    &catalog.ConditionsDocument{Currency: "foreign", ExcludedCurrencies: []string{"cny"}},
	})

	assert.NoError(t, ValidateCard(card))
}

func TestParseTransaction(t *testing.T) {
	txn, err := ParseTransaction(models.TransactionRequest{
		Amount:      decimal.RequireFromString("500"),
		Currency:    " usd ",
		Category:    "Dining",
		MerchantID:  "McDonalds",
		PaymentType: "Online",
		Location:    "Japan",
		Date:        "2025-06-15",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", txn.Currency)
	assert.Equal(t, "dining", txn.Category)
	assert.Equal(t, "mcdonalds", txn.MerchantID)
	assert.Equal(t, models.PaymentOnline, txn.PaymentType)
	assert.Equal(t, "japan", txn.Location)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.True(t, txn.IsForeign())
}

func TestParseTransaction_Defaults(t *testing.T) {
	txn, err := ParseTransaction(models.TransactionRequest{Amount: decimal.Zero, Currency: "HKD"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentOffline, txn.PaymentType)
	assert.True(t, txn.Date.IsZero())
	assert.False(t, txn.IsForeign())
}

func TestParseTransaction_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   models.TransactionRequest
		field string
	}{
		{"negative amount", models.TransactionRequest{Amount: decimal.NewFromInt(-5), Currency: "HKD"}, "amount"},
		{"huge amount", models.TransactionRequest{Amount: decimal.NewFromInt(200_000_000), Currency: "HKD"}, "amount"},
		{"missing currency", models.TransactionRequest{Amount: decimal.NewFromInt(5)}, "currency"},
		{"bad currency", models.TransactionRequest{Amount: decimal.NewFromInt(5), Currency: "HK$"}, "currency"},
		{"bad payment", models.TransactionRequest{Amount: decimal.NewFromInt(5), Currency: "HKD", PaymentType: "barter"}, "payment_type"},
		{"bad date", models.TransactionRequest{Amount: decimal.NewFromInt(5), Currency: "HKD", Date: "yesterday"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransaction(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.field, fieldOf(t, err))
		})
	}
}

func TestParsePreferences(t *testing.T) {
	prefs, err := ParsePreferences(nil)
	require.NoError(t, err)
	assert.Equal(t, models.Preferences{}, prefs)

	prefs, err = ParsePreferences(&models.PreferencesRequest{
		ExcludedCardIDs:      []string{" DBS-Black "},
		PreferredRewardUnits: []string{"Miles"},
		PreferredIssuers:     []string{"HSBC"},
		MaxAnnualFee:         dp("2000"),
		MonthlySpending:      dp("9000"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dbs-black"}, prefs.ExcludedCardIDs)
	assert.Equal(t, []models.RewardUnit{models.UnitMiles}, prefs.PreferredRewardUnits)
	assert.Equal(t, []string{"HSBC"}, prefs.PreferredIssuers)
	assert.True(t, prefs.MonthlySpending.Equal(decimal.NewFromInt(9000)))

	_, err = ParsePreferences(&models.PreferencesRequest{PreferredRewardUnits: []string{"gold"}})
	assert.Equal(t, "preferred_reward_units[0]", fieldOf(t, err))

	_, err = ParsePreferences(&models.PreferencesRequest{MonthlySpending: dp("-1")})
	assert.Equal(t, "monthly_spending", fieldOf(t, err))

	_, err = ParsePreferences(&models.PreferencesRequest{MaxAnnualFee: dp("-1")})
	assert.Equal(t, "max_annual_fee", fieldOf(t, err))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "dining", SanitizeString("  din\x00ing\x07 "))
	assert.Equal(t, "", SanitizeString("\x01"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-15T10:30:00+08:00")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	_, err = ParseDate("15/06/2025")
	assert.Error(t, err)
}
