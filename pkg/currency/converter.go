package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

// Converter translates amounts between supported currencies through a fixed
// pivot table: each rate is the value of one unit of that currency in pivot
// units. The table is static configuration; swapping it at construction is
// the seam for live-rate integration.
type Converter struct {
	rates map[domain.Currency]decimal.Decimal
}

// DefaultRates values one ruble at 1.0 pivot units.
func DefaultRates() map[domain.Currency]decimal.Decimal {
	return map[domain.Currency]decimal.Decimal{
		domain.RUB: decimal.NewFromInt(1),
		domain.USD: decimal.NewFromInt(90),
		domain.EUR: decimal.NewFromInt(98),
		domain.KZT: decimal.NewFromFloat(0.19),
		domain.CNY: decimal.NewFromFloat(12.5),
	}
}

// NewConverter builds a converter over the given table, falling back to
// DefaultRates when the table is empty. Non-positive rates are dropped; the
// currency then reads as unsupported.
func NewConverter(rates map[domain.Currency]decimal.Decimal) *Converter {
	if len(rates) == 0 {
		rates = DefaultRates()
	}
	table := make(map[domain.Currency]decimal.Decimal, len(rates))
	for cur, rate := range rates {
		if rate.IsPositive() {
			table[cur] = rate
		}
	}
	return &Converter{rates: table}
}

func (c *Converter) Supported(cur domain.Currency) bool {
	_, ok := c.rates[cur]
	return ok
}

// Rate returns how many units of to one unit of from is worth.
func (c *Converter) Rate(from, to domain.Currency) (decimal.Decimal, error) {
	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, to)
	}
	return fromRate.Div(toRate), nil
}

// Convert returns amount unchanged when from equals to; otherwise
// amount × rate(from)/rate(to), rounded to two decimal places.
func (c *Converter) Convert(amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		if !c.Supported(from) {
			return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, from)
		}
		return amount, nil
	}
	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, to)
	}
	return amount.Mul(fromRate).Div(toRate).Round(2), nil
}
