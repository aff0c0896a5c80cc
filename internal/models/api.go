package models

import "github.com/shopspring/decimal"

// TransactionRequest is the wire form of a transaction.
type TransactionRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Category     string          `json:"category,omitempty"`
	MerchantID   string          `json:"merchant_id,omitempty"`
	MerchantType string          `json:"merchant_type,omitempty"` // deprecated
	PaymentType  string          `json:"payment_type,omitempty"`  // defaults to offline
	Location     string          `json:"location,omitempty"`
	Date         string          `json:"date,omitempty"` // YYYY-MM-DD or RFC3339
}

// PreferencesRequest is the wire form of ranking preferences.
type PreferencesRequest struct {
	ExcludedCardIDs      []string         `json:"excluded_card_ids,omitempty"`
	PreferredRewardUnits []string         `json:"preferred_reward_units,omitempty"`
	MaxAnnualFee         *decimal.Decimal `json:"max_annual_fee,omitempty"`
	PreferredIssuers     []string         `json:"preferred_issuers,omitempty"`
	MonthlySpending      *decimal.Decimal `json:"monthly_spending,omitempty"`
}

// RecommendRequest is the request body for POST /recommendations.
type RecommendRequest struct {
	Transaction TransactionRequest  `json:"transaction"`
	Preferences *PreferencesRequest `json:"preferences,omitempty"`
}

// RecommendationView is one ranked card in an API response.
type RecommendationView struct {
	Rank          int               `json:"rank"`
	IsRecommended bool              `json:"is_recommended"`
	CardID        string            `json:"card_id"`
	CardName      string            `json:"card_name"`
	Issuer        string            `json:"issuer"`
	AnnualFee     decimal.Decimal   `json:"annual_fee"`
	RewardProgram string            `json:"reward_program,omitempty"`
	NetValue      decimal.Decimal   `json:"net_value"`
	Calculation   RewardCalculation `json:"calculation"`
}

// RecommendResponse is the response payload of a recommendation request.
type RecommendResponse struct {
	RequestID         string               `json:"request_id"`
	HasRecommendation bool                 `json:"has_recommendation"`
	Recommendations   []RecommendationView `json:"recommendations"`
}

// NewRecommendationView flattens a recommendation for display.
func NewRecommendationView(rec Recommendation) RecommendationView {
	return RecommendationView{
		Rank:          rec.Rank,
		IsRecommended: rec.IsRecommended,
		CardID:        rec.Card.ID,
		CardName:      rec.Card.Name,
		Issuer:        rec.Card.Issuer,
		AnnualFee:     rec.Card.Fees.AnnualFee,
		RewardProgram: rec.Card.RewardPrograms[rec.Calculation.RewardUnit],
		NetValue:      rec.NetValue,
		Calculation:   rec.Calculation,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
