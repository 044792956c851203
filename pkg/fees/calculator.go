package fees

import (
	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

var (
	externalTransferRate = decimal.NewFromFloat(0.015)
	externalTransferMin  = decimal.NewFromInt(50)
	conversionRate       = decimal.NewFromFloat(0.01)
)

// Calculator derives transaction fees. It is stateless and every method is
// a pure function of its arguments.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Fee returns the charge for a transaction, in the transaction's own
// currency units, rounded to two decimal places. Internal operations are
// free. External transfers cost 1.5% of the amount with a floor of 50.
// Currency conversion adds 1% of the amount regardless of type.
func (c *Calculator) Fee(txType domain.TransactionType, amount decimal.Decimal, withConversion bool) decimal.Decimal {
	fee := decimal.Zero
	if txType == domain.TypeExternalTransfer {
		fee = decimal.Max(amount.Mul(externalTransferRate), externalTransferMin)
	}
	if withConversion {
		fee = fee.Add(amount.Mul(conversionRate))
	}
	return fee.Round(2)
}
