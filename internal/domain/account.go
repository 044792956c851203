package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	RUB Currency = "RUB"
	USD Currency = "USD"
	EUR Currency = "EUR"
	KZT Currency = "KZT"
	CNY Currency = "CNY"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

type ClientType string

const (
	ClientIndividual ClientType = "FL"
	ClientLegal      ClientType = "UL"
)

type AccountKind string

const (
	KindChecking   AccountKind = "Checking"
	KindSavings    AccountKind = "Savings"
	KindPremium    AccountKind = "Premium"
	KindInvestment AccountKind = "Investment"
)

// OperationObserver receives a callback after every successful balance
// mutation. Implementations must not block and must not panic; failed
// operations are never reported.
type OperationObserver interface {
	OnDeposit(accountID string, currency Currency, amount, newBalance decimal.Decimal)
	OnWithdrawal(accountID string, currency Currency, amount, newBalance decimal.Decimal)
}

type Account interface {
	ID() string
	Owner() string
	OwnerType() ClientType
	Currency() Currency
	Kind() AccountKind
	CreatedAt() time.Time
	Balance() decimal.Decimal
	Status() AccountStatus
	SetStatus(status AccountStatus)
	Deposit(amount decimal.Decimal) error
	Withdraw(amount decimal.Decimal) error
	Info() map[string]any
}

// OverdraftAccount is implemented by account kinds that may spend below a
// zero balance.
type OverdraftAccount interface {
	Account
	OverdraftLimit() decimal.Decimal
}

// AccountSpec carries the construction parameters for every account kind.
// Fields that do not apply to the requested kind are ignored.
type AccountSpec struct {
	Kind           AccountKind
	Owner          string
	OwnerType      ClientType
	Currency       Currency
	Balance        decimal.Decimal
	MinBalance     decimal.Decimal
	MonthlyRate    decimal.Decimal
	OverdraftLimit decimal.Decimal
	FixedFee       decimal.Decimal
	ExpectedReturn decimal.Decimal
	Observer       OperationObserver
}

func NewAccount(spec AccountSpec) (Account, error) {
	switch spec.Kind {
	case KindChecking, "":
		return NewCheckingAccount(spec)
	case KindSavings:
		return NewSavingsAccount(spec)
	case KindPremium:
		return NewPremiumAccount(spec)
	case KindInvestment:
		return NewInvestmentAccount(spec)
	default:
		return nil, fmt.Errorf("%w: unknown account kind %q", ErrInvalidOperation, spec.Kind)
	}
}

type baseAccount struct {
	id        string
	owner     string
	ownerType ClientType
	currency  Currency
	kind      AccountKind
	createdAt time.Time
	observer  OperationObserver

	mu      sync.Mutex
	balance decimal.Decimal
	status  AccountStatus
}

func newBaseAccount(kind AccountKind, spec AccountSpec) (baseAccount, error) {
	if spec.Owner == "" {
		return baseAccount{}, fmt.Errorf("%w: owner is required", ErrInvalidOperation)
	}
	if spec.Currency == "" {
		return baseAccount{}, fmt.Errorf("%w: currency is required", ErrInvalidOperation)
	}
	if spec.Balance.IsNegative() {
		return baseAccount{}, fmt.Errorf("%w: starting balance %s is negative", ErrInsufficientFunds, spec.Balance)
	}
	ownerType := spec.OwnerType
	if ownerType == "" {
		ownerType = ClientIndividual
	}
	return baseAccount{
		id:        uuid.NewString(),
		owner:     spec.Owner,
		ownerType: ownerType,
		currency:  spec.Currency,
		kind:      kind,
		createdAt: time.Now(),
		observer:  spec.Observer,
		balance:   spec.Balance,
		status:    AccountActive,
	}, nil
}

func (b *baseAccount) ID() string            { return b.id }
func (b *baseAccount) Owner() string         { return b.owner }
func (b *baseAccount) OwnerType() ClientType { return b.ownerType }
func (b *baseAccount) Currency() Currency    { return b.currency }
func (b *baseAccount) Kind() AccountKind     { return b.kind }
func (b *baseAccount) CreatedAt() time.Time  { return b.createdAt }

func (b *baseAccount) Balance() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}

func (b *baseAccount) Status() AccountStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *baseAccount) SetStatus(status AccountStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// guard validates the shared preconditions for a balance mutation.
// Caller must hold b.mu.
func (b *baseAccount) guard(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidOperation, amount)
	}
	switch b.status {
	case AccountFrozen:
		return fmt.Errorf("%w: account %s", ErrAccountFrozen, b.id)
	case AccountClosed:
		return fmt.Errorf("%w: account %s", ErrAccountClosed, b.id)
	}
	return nil
}

func (b *baseAccount) Deposit(amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.guard(amount); err != nil {
		return err
	}
	b.balance = b.balance.Add(amount)
	b.notifyDeposit(amount, b.balance)
	return nil
}

// withdrawWithFloor runs the shared withdrawal flow, rejecting any operation
// that would leave the balance below floor. Balance is untouched on failure.
func (b *baseAccount) withdrawWithFloor(amount, floor decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.guard(amount); err != nil {
		return err
	}
	projected := b.balance.Sub(amount)
	if projected.LessThan(floor) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, b.balance, amount)
	}
	b.balance = projected
	b.notifyWithdrawal(amount, b.balance)
	return nil
}

func (b *baseAccount) notifyDeposit(amount, newBalance decimal.Decimal) {
	if b.observer != nil {
		b.observer.OnDeposit(b.id, b.currency, amount, newBalance)
	}
}

func (b *baseAccount) notifyWithdrawal(amount, newBalance decimal.Decimal) {
	if b.observer != nil {
		b.observer.OnWithdrawal(b.id, b.currency, amount, newBalance)
	}
}

// commonInfo builds the keys shared by every account kind.
// Caller must hold b.mu.
func (b *baseAccount) commonInfo() map[string]any {
	return map[string]any{
		"id":              b.id,
		"owner":           b.owner,
		"type":            b.ownerType,
		"currency":        b.currency,
		"balance":         b.balance,
		"status":          b.status,
		"account_subtype": b.kind,
	}
}

type CheckingAccount struct {
	baseAccount
}

func NewCheckingAccount(spec AccountSpec) (*CheckingAccount, error) {
	base, err := newBaseAccount(KindChecking, spec)
	if err != nil {
		return nil, err
	}
	return &CheckingAccount{baseAccount: base}, nil
}

func (c *CheckingAccount) Withdraw(amount decimal.Decimal) error {
	return c.withdrawWithFloor(amount, decimal.Zero)
}

func (c *CheckingAccount) Info() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commonInfo()
}
