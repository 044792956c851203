package processor

import (
	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/pkg/fees"
)

// TransactionFactory builds transactions with the correct fee already
// attached, so queue ordering and balance pre-checks see the full cost.
type TransactionFactory struct {
	fees *fees.Calculator
}

func NewTransactionFactory(calculator *fees.Calculator) *TransactionFactory {
	return &TransactionFactory{fees: calculator}
}

func (f *TransactionFactory) NewDeposit(toAccountID string, amount decimal.Decimal, c domain.Currency) *domain.Transaction {
	return domain.NewTransaction(domain.TypeDeposit, amount, c).
		WithAccounts("", toAccountID).
		WithFee(f.fees.Fee(domain.TypeDeposit, amount, false))
}

func (f *TransactionFactory) NewWithdrawal(fromAccountID string, amount decimal.Decimal, c domain.Currency) *domain.Transaction {
	return domain.NewTransaction(domain.TypeWithdrawal, amount, c).
		WithAccounts(fromAccountID, "").
		WithFee(f.fees.Fee(domain.TypeWithdrawal, amount, false))
}

// NewTransfer builds an internal transfer. withConversion marks a
// cross-currency transfer, which carries the conversion surcharge.
func (f *TransactionFactory) NewTransfer(fromAccountID, toAccountID string, amount decimal.Decimal, c domain.Currency, withConversion bool) *domain.Transaction {
	return domain.NewTransaction(domain.TypeTransfer, amount, c).
		WithAccounts(fromAccountID, toAccountID).
		WithFee(f.fees.Fee(domain.TypeTransfer, amount, withConversion))
}

// NewExternalTransfer builds a transfer that leaves the system. The
// commission applies on top of any conversion surcharge.
func (f *TransactionFactory) NewExternalTransfer(fromAccountID string, amount decimal.Decimal, c domain.Currency, withConversion bool) *domain.Transaction {
	return domain.NewTransaction(domain.TypeExternalTransfer, amount, c).
		WithAccounts(fromAccountID, "").
		WithFee(f.fees.Fee(domain.TypeExternalTransfer, amount, withConversion))
}
