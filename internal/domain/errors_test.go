package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	terminal := []error{
		ErrInvalidOperation,
		ErrInsufficientFunds,
		ErrAccountFrozen,
		ErrAccountClosed,
		ErrUnsupportedCurrency,
		fmt.Errorf("%w: balance 100, requested 500", ErrInsufficientFunds),
		fmt.Errorf("wrapped twice: %w", fmt.Errorf("%w: account x", ErrAccountFrozen)),
	}
	for _, err := range terminal {
		if !IsTerminal(err) {
			t.Errorf("expected %v to be terminal", err)
		}
	}

	transient := []error{
		errors.New("network unreachable"),
		fmt.Errorf("notification sink: %w", errors.New("timeout")),
		nil,
	}
	for _, err := range transient {
		if IsTerminal(err) {
			t.Errorf("expected %v to be transient", err)
		}
	}
}
