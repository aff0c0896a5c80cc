package rewards

import (
	"github.com/shopspring/decimal"

	"card-rewards-api/internal/models"
)

// Fees returns the transaction-level fee card charges on txn. Only the
// foreign transaction fee is per transaction; annual, cash advance and
// redemption fees are card-level and never included.
func Fees(card models.CreditCard, txn models.Transaction) decimal.Decimal {
	rate := card.Fees.ForeignTransactionFeeRate
	if rate == nil || !txn.IsForeign() {
		return decimal.Zero
	}
	return txn.Amount.Mul(*rate)
}
