package domain

import "errors"

var (
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAccountFrozen       = errors.New("account frozen")
	ErrAccountClosed       = errors.New("account closed")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// IsTerminal reports whether err is a business-rule rejection that retrying
// cannot fix. Anything outside this set is treated as transient.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountFrozen) ||
		errors.Is(err, ErrAccountClosed) ||
		errors.Is(err, ErrUnsupportedCurrency)
}
