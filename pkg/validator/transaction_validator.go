package validator

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

var (
	ErrInvalidAmount        = errors.New("invalid transaction amount")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInvalidAccount       = errors.New("invalid account")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// CurrencySupport reports whether a currency has a known exchange rate.
// The currency converter implements it.
type CurrencySupport interface {
	Supported(c domain.Currency) bool
}

type TransactionValidator struct {
	currencies    CurrencySupport
	currencyRegex *regexp.Regexp
	mu            sync.Mutex
	seen          map[string]struct{}
}

func NewTransactionValidator(currencies CurrencySupport) *TransactionValidator {
	return &TransactionValidator{
		currencies:    currencies,
		currencyRegex: regexp.MustCompile(`^[A-Z]{3}$`),
		seen:          make(map[string]struct{}),
	}
}

// ValidateTransaction checks tx before it enters the queue. Each
// transaction ID is accepted once; resubmitting it is a duplicate.
func (v *TransactionValidator) ValidateTransaction(tx *domain.Transaction) error {
	if tx == nil {
		return ErrInvalidAccount
	}

	var errs []error

	if !tx.Amount.IsPositive() {
		errs = append(errs, ErrInvalidAmount)
	}

	if !v.currencyRegex.MatchString(string(tx.Currency)) {
		errs = append(errs, ErrInvalidCurrency)
	} else if v.currencies != nil && !v.currencies.Supported(tx.Currency) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidCurrency, tx.Currency))
	}

	switch tx.Type {
	case domain.TypeDeposit:
		if tx.ToAccountID == "" {
			errs = append(errs, ErrInvalidAccount)
		}
	case domain.TypeWithdrawal, domain.TypeExternalTransfer:
		if tx.FromAccountID == "" {
			errs = append(errs, ErrInvalidAccount)
		}
	case domain.TypeTransfer:
		if tx.FromAccountID == "" || tx.ToAccountID == "" {
			errs = append(errs, ErrInvalidAccount)
		}
		if tx.FromAccountID != "" && tx.FromAccountID == tx.ToAccountID {
			errs = append(errs, errors.New("cannot transfer to same account"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transaction type: %s", tx.Type))
	}

	if tx.CreatedAt.After(time.Now().Add(5 * time.Minute)) {
		errs = append(errs, errors.New("transaction date cannot be in the future"))
	}

	if !tx.Priority.Valid() {
		errs = append(errs, fmt.Errorf("invalid priority: %d", tx.Priority))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
	}

	// Register the ID only once the transaction is otherwise valid, so a
	// rejected transaction can be corrected and resubmitted under the same ID.
	v.mu.Lock()
	_, dup := v.seen[tx.ID]
	if !dup {
		v.seen[tx.ID] = struct{}{}
	}
	v.mu.Unlock()
	if dup {
		return ErrDuplicateTransaction
	}

	return nil
}

// ValidateAmount applies per-currency ceilings on a single operation.
func (v *TransactionValidator) ValidateAmount(amount decimal.Decimal, c domain.Currency) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	limits := map[domain.Currency]decimal.Decimal{
		domain.RUB: decimal.NewFromInt(90000000),
		domain.USD: decimal.NewFromInt(1000000),
		domain.EUR: decimal.NewFromInt(900000),
		domain.CNY: decimal.NewFromInt(7000000),
		domain.KZT: decimal.NewFromInt(450000000),
	}

	if max, exists := limits[c]; exists && amount.GreaterThan(max) {
		return fmt.Errorf("amount exceeds maximum limit for %s: %s", c, max)
	}

	return nil
}
