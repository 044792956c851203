package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/internal/repository"
)

func newAccount(t *testing.T, owner string, balance int64) domain.Account {
	t.Helper()
	acc, err := domain.NewCheckingAccount(domain.AccountSpec{
		Owner:    owner,
		Currency: domain.RUB,
		Balance:  decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("NewCheckingAccount: %v", err)
	}
	return acc
}

func completedTx(accountID string, amount int64, createdAt time.Time) *domain.Transaction {
	tx := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(amount), domain.RUB).
		WithAccounts("", accountID)
	tx.CreatedAt = createdAt
	tx.MarkProcessing()
	tx.MarkCompleted()
	return tx
}

func TestAccountRepository_SaveAndGetByID(t *testing.T) {
	repo := NewAccountRepository()
	account := newAccount(t, "user1", 100)

	if err := repo.Save(context.Background(), account); err != nil {
		t.Fatalf("unexpected error on Save: %v", err)
	}

	got, err := repo.GetByID(context.Background(), account.ID())
	if err != nil {
		t.Fatalf("unexpected error on GetByID: %v", err)
	}
	if got.ID() != account.ID() || !got.Balance().Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected account %s with balance 100, got %s with %s", account.ID(), got.ID(), got.Balance())
	}
}

func TestAccountRepository_DuplicateSave(t *testing.T) {
	repo := NewAccountRepository()
	account := newAccount(t, "user1", 100)

	_ = repo.Save(context.Background(), account)
	if err := repo.Save(context.Background(), account); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_GetByOwner(t *testing.T) {
	repo := NewAccountRepository()
	_ = repo.Save(context.Background(), newAccount(t, "Ivan Ivanov", 100))
	_ = repo.Save(context.Background(), newAccount(t, "Ivan Ivanov", 200))
	_ = repo.Save(context.Background(), newAccount(t, "Other Person", 300))

	accounts, err := repo.GetByOwner(context.Background(), "Ivan Ivanov")
	if err != nil {
		t.Fatalf("unexpected error on GetByOwner: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(accounts))
	}

	if _, err := repo.GetByOwner(context.Background(), "Nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown owner, got %v", err)
	}
}

func TestAccountRepository_GetAllActive(t *testing.T) {
	repo := NewAccountRepository()
	active := newAccount(t, "user1", 100)
	frozen := newAccount(t, "user2", 200)
	frozen.SetStatus(domain.AccountFrozen)

	_ = repo.Save(context.Background(), active)
	_ = repo.Save(context.Background(), frozen)

	accounts, err := repo.GetAllActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on GetAllActive: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID() != active.ID() {
		t.Errorf("expected only the active account, got %d accounts", len(accounts))
	}
}

func TestTransactionRepository_SaveAndGetByID(t *testing.T) {
	repo := NewTransactionRepository()
	tx := completedTx("acc1", 100, time.Now())

	if err := repo.Save(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error on Save: %v", err)
	}

	got, err := repo.GetByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("unexpected error on GetByID: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) || got.Status() != domain.StatusCompleted {
		t.Errorf("expected completed transaction of 100, got %s with status %s", got.Amount, got.Status())
	}

	if err := repo.Save(context.Background(), tx); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on second save, got %v", err)
	}
}

func TestTransactionRepository_GetByAccountID(t *testing.T) {
	repo := NewTransactionRepository()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	oldest := completedTx("acc1", 10, base)
	middle := completedTx("acc1", 20, base.Add(time.Hour))
	newest := completedTx("acc1", 30, base.Add(2*time.Hour))
	for _, tx := range []*domain.Transaction{oldest, middle, newest} {
		_ = repo.Save(context.Background(), tx)
	}

	result, err := repo.GetByAccountID(context.Background(), "acc1", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error on GetByAccountID: %v", err)
	}
	if len(result) != 2 || result[0].ID != newest.ID || result[1].ID != middle.ID {
		t.Errorf("expected newest two transactions first, got %d results", len(result))
	}

	rest, err := repo.GetByAccountID(context.Background(), "acc1", 2, 2)
	if err != nil {
		t.Fatalf("unexpected error on offset query: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != oldest.ID {
		t.Errorf("expected the oldest transaction at offset 2, got %d results", len(rest))
	}
}

func TestTransactionRepository_GetByStatus(t *testing.T) {
	repo := NewTransactionRepository()

	completed := completedTx("acc1", 100, time.Now())
	failed := domain.NewTransaction(domain.TypeWithdrawal, decimal.NewFromInt(50), domain.RUB).
		WithAccounts("acc1", "")
	failed.MarkProcessing()
	failed.MarkFailed("insufficient funds")

	_ = repo.Save(context.Background(), completed)
	_ = repo.Save(context.Background(), failed)

	result, err := repo.GetByStatus(context.Background(), domain.StatusFailed)
	if err != nil {
		t.Fatalf("unexpected error on GetByStatus: %v", err)
	}
	if len(result) != 1 || result[0].ID != failed.ID {
		t.Errorf("expected only the failed transaction, got %d results", len(result))
	}
}

func TestTransactionRepository_GetByPeriod(t *testing.T) {
	repo := NewTransactionRepository()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	inside := completedTx("acc1", 10, base.Add(12*time.Hour))
	outside := completedTx("acc1", 20, base.Add(48*time.Hour))
	_ = repo.Save(context.Background(), inside)
	_ = repo.Save(context.Background(), outside)

	result, err := repo.GetByPeriod(context.Background(), base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error on GetByPeriod: %v", err)
	}
	if len(result) != 1 || result[0].ID != inside.ID {
		t.Errorf("expected only the transaction inside the period, got %d results", len(result))
	}
}

func TestTransactionRepository_GetDailyVolume(t *testing.T) {
	repo := NewTransactionRepository()
	now := time.Now()

	_ = repo.Save(context.Background(), completedTx("acc1", 50, now))
	_ = repo.Save(context.Background(), completedTx("acc1", 30, now))

	// Failed transactions must not count toward volume.
	failed := domain.NewTransaction(domain.TypeWithdrawal, decimal.NewFromInt(500), domain.RUB).
		WithAccounts("acc1", "")
	failed.MarkProcessing()
	failed.MarkFailed("insufficient funds")
	_ = repo.Save(context.Background(), failed)

	total, err := repo.GetDailyVolume(context.Background(), "acc1", now)
	if err != nil {
		t.Fatalf("unexpected error on GetDailyVolume: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected total 80, got %s", total)
	}
}
