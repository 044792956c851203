package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

func TestCalculator_InternalOperationsAreFree(t *testing.T) {
	c := NewCalculator()

	for _, txType := range []domain.TransactionType{domain.TypeDeposit, domain.TypeWithdrawal, domain.TypeTransfer} {
		fee := c.Fee(txType, decimal.NewFromInt(100000), false)
		if !fee.IsZero() {
			t.Errorf("expected zero fee for %s, got %s", txType, fee)
		}
	}
}

func TestCalculator_ExternalTransferPercentage(t *testing.T) {
	c := NewCalculator()

	// 1.5% of 10000 = 150, above the floor.
	fee := c.Fee(domain.TypeExternalTransfer, decimal.NewFromInt(10000), false)
	if !fee.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected fee 150, got %s", fee)
	}
}

func TestCalculator_ExternalTransferFloor(t *testing.T) {
	c := NewCalculator()

	// 1.5% of 1000 = 15, below the floor of 50.
	fee := c.Fee(domain.TypeExternalTransfer, decimal.NewFromInt(1000), false)
	if !fee.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected floor fee 50, got %s", fee)
	}
}

func TestCalculator_ConversionSurcharge(t *testing.T) {
	c := NewCalculator()

	// Conversion adds 1% on top of the type fee.
	fee := c.Fee(domain.TypeTransfer, decimal.NewFromInt(1000), true)
	if !fee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected conversion fee 10, got %s", fee)
	}

	fee = c.Fee(domain.TypeExternalTransfer, decimal.NewFromInt(10000), true)
	if !fee.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected combined fee 250, got %s", fee)
	}
}

func TestCalculator_RoundsToTwoDecimals(t *testing.T) {
	c := NewCalculator()

	// 1.5% of 3333.33 = 49.99995 -> floor 50 wins; 1% = 33.3333 -> 33.33.
	fee := c.Fee(domain.TypeExternalTransfer, decimal.RequireFromString("3333.33"), true)
	if !fee.Equal(decimal.RequireFromString("83.33")) {
		t.Errorf("expected 83.33, got %s", fee)
	}
}
