package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type SavingsAccount struct {
	baseAccount
	minBalance  decimal.Decimal
	monthlyRate decimal.Decimal
}

func NewSavingsAccount(spec AccountSpec) (*SavingsAccount, error) {
	if spec.MinBalance.IsNegative() {
		return nil, fmt.Errorf("%w: minimum balance %s is negative", ErrInsufficientFunds, spec.MinBalance)
	}
	if spec.MonthlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: monthly interest rate %s is negative", ErrInvalidOperation, spec.MonthlyRate)
	}
	base, err := newBaseAccount(KindSavings, spec)
	if err != nil {
		return nil, err
	}
	return &SavingsAccount{
		baseAccount: base,
		minBalance:  spec.MinBalance,
		monthlyRate: spec.MonthlyRate,
	}, nil
}

func (s *SavingsAccount) MinBalance() decimal.Decimal  { return s.minBalance }
func (s *SavingsAccount) MonthlyRate() decimal.Decimal { return s.monthlyRate }

// Withdraw fails if the remaining balance would fall below the minimum.
// Landing exactly on the minimum is allowed.
func (s *SavingsAccount) Withdraw(amount decimal.Decimal) error {
	return s.withdrawWithFloor(amount, s.minBalance)
}

// ApplyMonthlyInterest credits one month of interest, rounded to two decimal
// places. The credit is reported to the observer as a deposit.
func (s *SavingsAccount) ApplyMonthlyInterest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case AccountFrozen:
		return fmt.Errorf("%w: account %s", ErrAccountFrozen, s.id)
	case AccountClosed:
		return fmt.Errorf("%w: account %s", ErrAccountClosed, s.id)
	}
	interest := s.balance.Mul(s.monthlyRate).Round(2)
	if !interest.IsPositive() {
		return nil
	}
	s.balance = s.balance.Add(interest)
	s.notifyDeposit(interest, s.balance)
	return nil
}

func (s *SavingsAccount) Info() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.commonInfo()
	info["min_balance"] = s.minBalance
	info["monthly_interest_rate"] = s.monthlyRate
	return info
}
