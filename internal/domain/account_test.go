package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type recordingObserver struct {
	deposits    []decimal.Decimal
	withdrawals []decimal.Decimal
}

func (r *recordingObserver) OnDeposit(accountID string, currency Currency, amount, newBalance decimal.Decimal) {
	r.deposits = append(r.deposits, amount)
}

func (r *recordingObserver) OnWithdrawal(accountID string, currency Currency, amount, newBalance decimal.Decimal) {
	r.withdrawals = append(r.withdrawals, amount)
}

func mustChecking(t *testing.T, balance int64) *CheckingAccount {
	t.Helper()
	acc, err := NewCheckingAccount(AccountSpec{
		Owner:    "Test User",
		Currency: USD,
		Balance:  decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("NewCheckingAccount: %v", err)
	}
	return acc
}

func TestCheckingAccount_DepositAndWithdraw(t *testing.T) {
	acc := mustChecking(t, 1000)

	if err := acc.Deposit(decimal.NewFromInt(1500)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(500)); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected balance 2000, got %s", acc.Balance())
	}
}

func TestCheckingAccount_WithdrawInsufficientFunds(t *testing.T) {
	acc := mustChecking(t, 1000)

	err := acc.Withdraw(decimal.NewFromInt(1500))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed on failed withdrawal: %s", acc.Balance())
	}
}

func TestCheckingAccount_NonPositiveAmounts(t *testing.T) {
	acc := mustChecking(t, 1000)

	if err := acc.Deposit(decimal.Zero); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for zero deposit, got %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for negative withdrawal, got %v", err)
	}
}

func TestCheckingAccount_FrozenRejectsOperations(t *testing.T) {
	acc := mustChecking(t, 1000)
	acc.SetStatus(AccountFrozen)

	if err := acc.Deposit(decimal.NewFromInt(100)); !errors.Is(err, ErrAccountFrozen) {
		t.Errorf("expected ErrAccountFrozen on deposit, got %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(100)); !errors.Is(err, ErrAccountFrozen) {
		t.Errorf("expected ErrAccountFrozen on withdrawal, got %v", err)
	}
}

func TestCheckingAccount_ClosedRejectsOperations(t *testing.T) {
	acc := mustChecking(t, 1000)
	acc.SetStatus(AccountClosed)

	if err := acc.Deposit(decimal.NewFromInt(100)); !errors.Is(err, ErrAccountClosed) {
		t.Errorf("expected ErrAccountClosed on deposit, got %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(100)); !errors.Is(err, ErrAccountClosed) {
		t.Errorf("expected ErrAccountClosed on withdrawal, got %v", err)
	}
}

func TestNewAccount_NegativeStartingBalance(t *testing.T) {
	_, err := NewCheckingAccount(AccountSpec{
		Owner:    "Test User",
		Currency: RUB,
		Balance:  decimal.NewFromInt(-100),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestNewAccount_KindDispatch(t *testing.T) {
	spec := AccountSpec{Owner: "Test User", Currency: RUB, Balance: decimal.NewFromInt(100)}

	for _, kind := range []AccountKind{KindChecking, KindSavings, KindPremium, KindInvestment} {
		spec.Kind = kind
		acc, err := NewAccount(spec)
		if err != nil {
			t.Fatalf("NewAccount(%s): %v", kind, err)
		}
		if acc.Kind() != kind {
			t.Errorf("expected kind %s, got %s", kind, acc.Kind())
		}
	}

	spec.Kind = "Offshore"
	if _, err := NewAccount(spec); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation for unknown kind, got %v", err)
	}
}

func TestAccount_ObserverOnlyOnSuccess(t *testing.T) {
	obs := &recordingObserver{}
	acc, err := NewCheckingAccount(AccountSpec{
		Owner:    "Test User",
		Currency: USD,
		Balance:  decimal.NewFromInt(1000),
		Observer: obs,
	})
	if err != nil {
		t.Fatalf("NewCheckingAccount: %v", err)
	}

	if err := acc.Deposit(decimal.NewFromInt(200)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(5000)); err == nil {
		t.Fatal("expected withdrawal to fail")
	}

	if len(obs.deposits) != 1 || len(obs.withdrawals) != 0 {
		t.Errorf("expected 1 deposit and 0 withdrawals recorded, got %d and %d",
			len(obs.deposits), len(obs.withdrawals))
	}
}

func TestAccount_Info(t *testing.T) {
	acc, err := NewCheckingAccount(AccountSpec{
		Owner:     "Igor Igorevich",
		OwnerType: ClientIndividual,
		Currency:  RUB,
		Balance:   decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("NewCheckingAccount: %v", err)
	}

	info := acc.Info()
	if info["id"] != acc.ID() {
		t.Errorf("expected id %s, got %v", acc.ID(), info["id"])
	}
	if info["owner"] != "Igor Igorevich" {
		t.Errorf("unexpected owner: %v", info["owner"])
	}
	if info["type"] != ClientIndividual {
		t.Errorf("expected type FL, got %v", info["type"])
	}
	if info["status"] != AccountActive {
		t.Errorf("expected status active, got %v", info["status"])
	}
	if info["account_subtype"] != KindChecking {
		t.Errorf("expected subtype Checking, got %v", info["account_subtype"])
	}
}

func TestSavingsAccount_WithdrawBelowMinBalance(t *testing.T) {
	acc, err := NewSavingsAccount(AccountSpec{
		Owner:      "Test User",
		Currency:   RUB,
		Balance:    decimal.NewFromInt(5000),
		MinBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("NewSavingsAccount: %v", err)
	}

	if err := acc.Withdraw(decimal.NewFromInt(4500)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(5000)) {
		t.Errorf("balance changed on failed withdrawal: %s", acc.Balance())
	}
}

func TestSavingsAccount_WithdrawToExactMinimum(t *testing.T) {
	acc, err := NewSavingsAccount(AccountSpec{
		Owner:      "Test User",
		Currency:   RUB,
		Balance:    decimal.NewFromInt(5000),
		MinBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("NewSavingsAccount: %v", err)
	}

	if err := acc.Withdraw(decimal.NewFromInt(4000)); err != nil {
		t.Fatalf("withdraw to exact minimum should succeed: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000, got %s", acc.Balance())
	}
}

func TestSavingsAccount_NegativeMinBalance(t *testing.T) {
	_, err := NewSavingsAccount(AccountSpec{
		Owner:      "Test User",
		Currency:   RUB,
		Balance:    decimal.NewFromInt(5000),
		MinBalance: decimal.NewFromInt(-1000),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestSavingsAccount_ApplyMonthlyInterest(t *testing.T) {
	acc, err := NewSavingsAccount(AccountSpec{
		Owner:       "Test User",
		Currency:    RUB,
		Balance:     decimal.NewFromInt(10000),
		MinBalance:  decimal.NewFromInt(1000),
		MonthlyRate: decimal.NewFromFloat(0.05),
	})
	if err != nil {
		t.Fatalf("NewSavingsAccount: %v", err)
	}

	if err := acc.ApplyMonthlyInterest(); err != nil {
		t.Fatalf("ApplyMonthlyInterest: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(10500)) {
		t.Errorf("expected balance 10500, got %s", acc.Balance())
	}
}

func TestSavingsAccount_InterestOnFrozenAccount(t *testing.T) {
	acc, err := NewSavingsAccount(AccountSpec{
		Owner:       "Test User",
		Currency:    RUB,
		Balance:     decimal.NewFromInt(10000),
		MinBalance:  decimal.NewFromInt(1000),
		MonthlyRate: decimal.NewFromFloat(0.05),
	})
	if err != nil {
		t.Fatalf("NewSavingsAccount: %v", err)
	}
	acc.SetStatus(AccountFrozen)

	if err := acc.ApplyMonthlyInterest(); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func mustPremium(t *testing.T, balance, limit, fee int64) *PremiumAccount {
	t.Helper()
	acc, err := NewPremiumAccount(AccountSpec{
		Owner:          "Test User",
		Currency:       USD,
		Balance:        decimal.NewFromInt(balance),
		OverdraftLimit: decimal.NewFromInt(limit),
		FixedFee:       decimal.NewFromInt(fee),
	})
	if err != nil {
		t.Fatalf("NewPremiumAccount: %v", err)
	}
	return acc
}

func TestPremiumAccount_OverdraftExcursion(t *testing.T) {
	acc := mustPremium(t, 1000, 5000, 50)

	if err := acc.Withdraw(decimal.NewFromInt(1500)); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(-550)) {
		t.Fatalf("expected balance -550 after first withdrawal, got %s", acc.Balance())
	}
	if !acc.FeeCharged() {
		t.Fatal("expected fee flag set after entering overdraft")
	}

	if err := acc.Withdraw(decimal.NewFromInt(500)); err != nil {
		t.Fatalf("second withdrawal: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(-1050)) {
		t.Fatalf("fee applied twice: expected -1050, got %s", acc.Balance())
	}

	if err := acc.Deposit(decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(950)) {
		t.Fatalf("expected balance 950, got %s", acc.Balance())
	}
	if acc.FeeCharged() {
		t.Fatal("expected fee flag reset after balance returned to positive")
	}
}

func TestPremiumAccount_WithdrawBeyondOverdraftLimit(t *testing.T) {
	acc := mustPremium(t, 1000, 5000, 50)

	if err := acc.Withdraw(decimal.NewFromInt(7000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed on failed withdrawal: %s", acc.Balance())
	}
}

func TestPremiumAccount_FloorIncludesProspectiveFee(t *testing.T) {
	acc := mustPremium(t, 1000, 5000, 50)

	// 1000 - 5990 = -4990 is inside the limit, but the entry fee lands at
	// -5040 which is not.
	if err := acc.Withdraw(decimal.NewFromInt(5990)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed on failed withdrawal: %s", acc.Balance())
	}
}

func TestPremiumAccount_DepositToZeroResetsFee(t *testing.T) {
	acc := mustPremium(t, 1000, 5000, 50)

	if err := acc.Withdraw(decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := acc.Deposit(decimal.NewFromInt(1050)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !acc.Balance().Equal(decimal.Zero) {
		t.Fatalf("expected balance 0, got %s", acc.Balance())
	}
	if acc.FeeCharged() {
		t.Fatal("expected fee flag reset at exactly zero")
	}
}

func TestPremiumAccount_Info(t *testing.T) {
	acc := mustPremium(t, 1000, 5000, 50)

	info := acc.Info()
	if !info["available_balance"].(decimal.Decimal).Equal(decimal.NewFromInt(6000)) {
		t.Errorf("expected available balance 6000, got %v", info["available_balance"])
	}
	if !info["overdraft_limit"].(decimal.Decimal).Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected overdraft limit 5000, got %v", info["overdraft_limit"])
	}
	if info["account_subtype"] != KindPremium {
		t.Errorf("expected subtype Premium, got %v", info["account_subtype"])
	}
}

func mustInvestment(t *testing.T, balance int64, expectedReturn float64) *InvestmentAccount {
	t.Helper()
	acc, err := NewInvestmentAccount(AccountSpec{
		Owner:          "Test User",
		Currency:       USD,
		Balance:        decimal.NewFromInt(balance),
		ExpectedReturn: decimal.NewFromFloat(expectedReturn),
	})
	if err != nil {
		t.Fatalf("NewInvestmentAccount: %v", err)
	}
	return acc
}

func TestInvestmentAccount_AddAsset(t *testing.T) {
	acc := mustInvestment(t, 10000, 0.10)

	stock := NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150))
	if err := acc.AddAsset(stock); err != nil {
		t.Fatalf("AddAsset: %v", err)
	}

	if len(acc.Portfolio()) != 1 {
		t.Errorf("expected 1 holding, got %d", len(acc.Portfolio()))
	}
	if !acc.Balance().Equal(decimal.NewFromInt(8500)) {
		t.Errorf("expected free cash 8500, got %s", acc.Balance())
	}
}

func TestInvestmentAccount_AddAssetInsufficientCash(t *testing.T) {
	acc := mustInvestment(t, 1000, 0.10)

	stock := NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150))
	if err := acc.AddAsset(stock); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance changed on failed purchase: %s", acc.Balance())
	}
}

func TestInvestmentAccount_AddAssetFrozen(t *testing.T) {
	acc := mustInvestment(t, 10000, 0.10)
	acc.SetStatus(AccountFrozen)

	stock := NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150))
	if err := acc.AddAsset(stock); !errors.Is(err, ErrAccountFrozen) {
		t.Fatalf("expected ErrAccountFrozen, got %v", err)
	}
}

func TestInvestmentAccount_WithdrawOnlyFreeCash(t *testing.T) {
	acc := mustInvestment(t, 10000, 0.10)
	if err := acc.AddAsset(NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150))); err != nil {
		t.Fatalf("AddAsset: %v", err)
	}

	if err := acc.Withdraw(decimal.NewFromInt(9000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := acc.Withdraw(decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("withdraw within free cash: %v", err)
	}
	if !acc.Balance().Equal(decimal.NewFromInt(3500)) {
		t.Errorf("expected free cash 3500, got %s", acc.Balance())
	}
}

func TestInvestmentAccount_PortfolioAndTotalValue(t *testing.T) {
	acc := mustInvestment(t, 50000, 0.10)

	acc.AddAsset(NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150)))
	acc.AddAsset(NewBond("US10Y", decimal.NewFromInt(5), decimal.NewFromInt(1000)))
	acc.AddAsset(NewETF("SPY", decimal.NewFromInt(20), decimal.NewFromInt(400)))

	if !acc.PortfolioValue().Equal(decimal.NewFromInt(14500)) {
		t.Errorf("expected portfolio value 14500, got %s", acc.PortfolioValue())
	}
	if !acc.TotalValue().Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected total value 50000, got %s", acc.TotalValue())
	}
}

func TestInvestmentAccount_ProjectYearlyGrowth(t *testing.T) {
	acc := mustInvestment(t, 10000, 0.10)

	projection := acc.ProjectYearlyGrowth(3)

	if !projection.CurrentValue.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected current value 10000, got %s", projection.CurrentValue)
	}
	if len(projection.Projections) != 3 {
		t.Fatalf("expected 3 projected years, got %d", len(projection.Projections))
	}
	if !projection.Projections["year_1"].Equal(decimal.NewFromInt(11000)) {
		t.Errorf("expected year_1 = 11000, got %s", projection.Projections["year_1"])
	}
	if !projection.Projections["year_3"].Equal(decimal.NewFromFloat(13310)) {
		t.Errorf("expected year_3 = 13310, got %s", projection.Projections["year_3"])
	}
}

func TestInvestmentAccount_Info(t *testing.T) {
	acc := mustInvestment(t, 50000, 0.12)
	acc.AddAsset(NewStock("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(150)))

	info := acc.Info()
	if info["account_subtype"] != KindInvestment {
		t.Errorf("expected subtype Investment, got %v", info["account_subtype"])
	}
	if !info["portfolio_value"].(decimal.Decimal).Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected portfolio value 1500, got %v", info["portfolio_value"])
	}
	if !info["total_value"].(decimal.Decimal).Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected total value 50000, got %v", info["total_value"])
	}
	if info["assets_count"] != 1 {
		t.Errorf("expected assets_count 1, got %v", info["assets_count"])
	}
}
