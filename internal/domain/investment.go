package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type AssetKind string

const (
	AssetStock AssetKind = "stock"
	AssetBond  AssetKind = "bond"
	AssetETF   AssetKind = "etf"
)

type Asset struct {
	Kind     AssetKind       `json:"kind"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func NewStock(symbol string, quantity, price decimal.Decimal) Asset {
	return Asset{Kind: AssetStock, Symbol: symbol, Quantity: quantity, Price: price}
}

func NewBond(symbol string, quantity, price decimal.Decimal) Asset {
	return Asset{Kind: AssetBond, Symbol: symbol, Quantity: quantity, Price: price}
}

func NewETF(symbol string, quantity, price decimal.Decimal) Asset {
	return Asset{Kind: AssetETF, Symbol: symbol, Quantity: quantity, Price: price}
}

func (a Asset) Cost() decimal.Decimal {
	return a.Quantity.Mul(a.Price)
}

// GrowthProjection is the result of compounding an account's total value at
// its expected annual return, keyed "year_1" .. "year_N".
type GrowthProjection struct {
	CurrentValue decimal.Decimal            `json:"current_value"`
	Projections  map[string]decimal.Decimal `json:"projections"`
}

type InvestmentAccount struct {
	baseAccount
	expectedReturn decimal.Decimal
	portfolio      []Asset // guarded by mu
}

func NewInvestmentAccount(spec AccountSpec) (*InvestmentAccount, error) {
	if spec.ExpectedReturn.IsNegative() {
		return nil, fmt.Errorf("%w: expected annual return %s is negative", ErrInvalidOperation, spec.ExpectedReturn)
	}
	base, err := newBaseAccount(KindInvestment, spec)
	if err != nil {
		return nil, err
	}
	return &InvestmentAccount{
		baseAccount:    base,
		expectedReturn: spec.ExpectedReturn,
	}, nil
}

func (i *InvestmentAccount) ExpectedReturn() decimal.Decimal { return i.expectedReturn }

// Withdraw draws on free cash only; holdings are never liquidated.
func (i *InvestmentAccount) Withdraw(amount decimal.Decimal) error {
	return i.withdrawWithFloor(amount, decimal.Zero)
}

// AddAsset buys an asset with free cash.
func (i *InvestmentAccount) AddAsset(asset Asset) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	cost := asset.Cost()
	if err := i.guard(cost); err != nil {
		return err
	}
	if cost.GreaterThan(i.balance) {
		return fmt.Errorf("%w: free cash %s, asset cost %s", ErrInsufficientFunds, i.balance, cost)
	}
	i.balance = i.balance.Sub(cost)
	i.portfolio = append(i.portfolio, asset)
	i.notifyWithdrawal(cost, i.balance)
	return nil
}

func (i *InvestmentAccount) Portfolio() []Asset {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Asset, len(i.portfolio))
	copy(out, i.portfolio)
	return out
}

func (i *InvestmentAccount) PortfolioValue() decimal.Decimal {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.portfolioValueLocked()
}

// TotalValue is free cash plus the value of all holdings.
func (i *InvestmentAccount) TotalValue() decimal.Decimal {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.balance.Add(i.portfolioValueLocked())
}

// ProjectYearlyGrowth compounds the current total value at the expected
// annual return. Each projected year is rounded to two decimal places;
// compounding itself is not rounded.
func (i *InvestmentAccount) ProjectYearlyGrowth(years int) GrowthProjection {
	i.mu.Lock()
	current := i.balance.Add(i.portfolioValueLocked())
	i.mu.Unlock()

	growth := decimal.NewFromInt(1).Add(i.expectedReturn)
	projections := make(map[string]decimal.Decimal, years)
	value := current
	for year := 1; year <= years; year++ {
		value = value.Mul(growth)
		projections[fmt.Sprintf("year_%d", year)] = value.Round(2)
	}
	return GrowthProjection{CurrentValue: current, Projections: projections}
}

func (i *InvestmentAccount) Info() map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	info := i.commonInfo()
	value := i.portfolioValueLocked()
	info["portfolio_value"] = value
	info["total_value"] = i.balance.Add(value)
	info["assets_count"] = len(i.portfolio)
	info["expected_return"] = i.expectedReturn
	return info
}

// portfolioValueLocked sums the holdings. Caller must hold i.mu.
func (i *InvestmentAccount) portfolioValueLocked() decimal.Decimal {
	total := decimal.Zero
	for _, a := range i.portfolio {
		total = total.Add(a.Cost())
	}
	return total
}
