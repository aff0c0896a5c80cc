package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-rewards-api/internal/models"
)

func TestNormalizeRule_Sentinels(t *testing.T) {
	rule := NormalizeRule(RuleDocument{
		ID:         "fx",
		RewardRate: decimal.RequireFromString("0.04"),
		RewardUnit: "Miles",
		Priority:   "Bonus",
		Categories: []string{"ALL", "Dining"},
		Conditions: &ConditionsDocument{Currency: "Foreign"},
	})

	assert.True(t, rule.Target.All)
	assert.Equal(t, []string{"dining"}, rule.Target.Categories)
	assert.Equal(t, models.UnitMiles, rule.Unit)
	assert.Equal(t, models.PriorityBonus, rule.Priority)
	assert.Equal(t, models.CurrencyFilter{Kind: models.CurrencyForeign}, rule.Conditions.Currency)
}

func TestNormalizeRule_SpecificCurrency(t *testing.T) {
	rule := NormalizeRule(RuleDocument{
		Categories: []string{"travel"},
		Conditions: &ConditionsDocument{
			Currency:           "usd",
			ExcludedCurrencies: []string{"jpy", " "},
		},
	})

	assert.Equal(t, models.CurrencyFilter{Kind: models.CurrencySpecific, Code: "USD"}, rule.Conditions.Currency)
	assert.Equal(t, []string{"JPY"}, rule.Conditions.ExcludedCurrencies)
}

func TestNormalizeRule_LegacyFields(t *testing.T) {
	cumulative := true
	notCumulative := false

	legacy := NormalizeRule(RuleDocument{
		IsCumulative:  &cumulative,
		Categories:    []string{"dining"},
		MerchantTypes: []string{"Dining", "Supermarket"},
	})
	assert.Equal(t, models.PriorityBonus, legacy.Priority)
	assert.Equal(t, []string{"dining", "supermarket"}, legacy.Target.Categories)

	assert.Equal(t, models.PriorityBase, NormalizeRule(RuleDocument{IsCumulative: &notCumulative}).Priority)
	assert.Equal(t, models.PriorityBase, NormalizeRule(RuleDocument{}).Priority)

	explicit := NormalizeRule(RuleDocument{Priority: "specific", IsCumulative: &cumulative})
	assert.Equal(t, models.PrioritySpecific, explicit.Priority, "priority wins over is_cumulative")
}

func TestNormalizeRule_Conditions(t *testing.T) {
	minAmount := decimal.RequireFromString("100")
	rule := NormalizeRule(RuleDocument{
		Categories:        []string{"dining"},
		SpecificMerchants: []string{"McDonalds", "mcdonalds"},
		ExcludedMerchants: []string{"KFC"},
		ValidFrom:         "2025-01-01T00:00:00Z",
		ValidUntil:        "2025-03-31",
		Conditions: &ConditionsDocument{
			PaymentType: "Online",
			DayOfWeek:   []int{0, 6},
			MinAmount:   &minAmount,
			Geographic: &GeographicDocument{
				ExcludedRegions: []string{"Mainland-China"},
				OnlineExempt:    true,
			},
		},
	})

	assert.Equal(t, []string{"mcdonalds"}, rule.Target.Merchants)
	assert.Equal(t, []string{"kfc"}, rule.ExcludedMerchants)
	assert.Equal(t, "2025-01-01", rule.ValidFrom)
	assert.Equal(t, "2025-03-31", rule.ValidUntil)
	require.NotNil(t, rule.Conditions.PaymentType)
	assert.Equal(t, models.PaymentOnline, *rule.Conditions.PaymentType)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, rule.Conditions.DaysOfWeek)
	assert.True(t, rule.Conditions.MinAmount.Equal(minAmount))
	require.NotNil(t, rule.Conditions.Geographic)
	assert.Equal(t, []string{"mainland-china"}, rule.Conditions.Geographic.ExcludedRegions)
	assert.True(t, rule.Conditions.Geographic.OnlineExempt)
}

func TestNormalize_Card(t *testing.T) {
	fx := decimal.RequireFromString("0.0195")
	card := Normalize(CardDocument{
		ID:       "hsbc-red",
		Name:     "HSBC Red",
		Issuer:   "HSBC",
		IsActive: true,
		Fees:     FeesDocument{AnnualFee: decimal.NewFromInt(0), ForeignTransactionFeeRate: &fx},
		Rewards: []RuleDocument{
			{RewardRate: decimal.RequireFromString("0.004"), Categories: []string{"all"}},
			{ID: "online", RewardRate: decimal.RequireFromString("0.04"), Categories: []string{"online"}},
		},
		RewardPrograms: map[string]string{"Cash": "RewardCash"},
	})

	assert.Equal(t, "hsbc-red", card.ID)
	assert.True(t, card.IsActive)
	require.Len(t, card.Rewards, 2)
	assert.Equal(t, "hsbc-red-1", card.Rewards[0].ID)
	assert.Equal(t, "online", card.Rewards[1].ID)
	assert.Equal(t, models.UnitCash, card.Rewards[0].Unit)
	assert.Equal(t, "RewardCash", card.RewardPrograms[models.UnitCash])
	require.NotNil(t, card.Fees.ForeignTransactionFeeRate)
	assert.True(t, card.Fees.ForeignTransactionFeeRate.Equal(fx))
}
