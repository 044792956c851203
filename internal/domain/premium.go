package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PremiumAccount struct {
	baseAccount
	overdraftLimit decimal.Decimal
	fixedFee       decimal.Decimal

	// feeCharged is true while the balance has stayed negative since it was
	// last non-negative. Guarded by mu.
	feeCharged bool
}

func NewPremiumAccount(spec AccountSpec) (*PremiumAccount, error) {
	if spec.OverdraftLimit.IsNegative() {
		return nil, fmt.Errorf("%w: overdraft limit %s is negative", ErrInvalidOperation, spec.OverdraftLimit)
	}
	if spec.FixedFee.IsNegative() {
		return nil, fmt.Errorf("%w: overdraft fee %s is negative", ErrInvalidOperation, spec.FixedFee)
	}
	base, err := newBaseAccount(KindPremium, spec)
	if err != nil {
		return nil, err
	}
	return &PremiumAccount{
		baseAccount:    base,
		overdraftLimit: spec.OverdraftLimit,
		fixedFee:       spec.FixedFee,
	}, nil
}

func (p *PremiumAccount) OverdraftLimit() decimal.Decimal { return p.overdraftLimit }

func (p *PremiumAccount) AvailableBalance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance.Add(p.overdraftLimit)
}

func (p *PremiumAccount) FeeCharged() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feeCharged
}

// Withdraw may take the balance negative down to -overdraftLimit. Entering
// the negative range deducts the fixed fee once per continuous excursion;
// the floor check includes the prospective fee so the limit is never crossed.
func (p *PremiumAccount) Withdraw(amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.guard(amount); err != nil {
		return err
	}
	projected := p.balance.Sub(amount)
	chargeFee := projected.IsNegative() && !p.feeCharged
	if chargeFee {
		projected = projected.Sub(p.fixedFee)
	}
	if projected.LessThan(p.overdraftLimit.Neg()) {
		return fmt.Errorf("%w: balance %s, overdraft limit %s, requested %s",
			ErrInsufficientFunds, p.balance, p.overdraftLimit, amount)
	}
	p.balance = projected
	if chargeFee {
		p.feeCharged = true
	}
	p.notifyWithdrawal(amount, p.balance)
	return nil
}

// Deposit resets the excursion fee flag once the balance is back to zero
// or above.
func (p *PremiumAccount) Deposit(amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.guard(amount); err != nil {
		return err
	}
	p.balance = p.balance.Add(amount)
	if !p.balance.IsNegative() {
		p.feeCharged = false
	}
	p.notifyDeposit(amount, p.balance)
	return nil
}

func (p *PremiumAccount) Info() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	info := p.commonInfo()
	info["overdraft_limit"] = p.overdraftLimit
	info["available_balance"] = p.balance.Add(p.overdraftLimit)
	return info
}
