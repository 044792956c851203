package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransaction_Lifecycle(t *testing.T) {
	tx := NewTransaction(TypeDeposit, decimal.NewFromInt(100), USD)

	if tx.Status() != StatusPending {
		t.Fatalf("new transaction should be pending, got %s", tx.Status())
	}
	if !tx.MarkProcessing() {
		t.Fatal("pending -> processing should succeed")
	}
	if !tx.MarkCompleted() {
		t.Fatal("processing -> completed should succeed")
	}
	if tx.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %s", tx.Status())
	}
	if tx.ProcessedAt().IsZero() {
		t.Error("completed transaction should carry a processed timestamp")
	}
	if tx.MarkProcessing() {
		t.Error("completed transaction must not re-enter processing")
	}
}

func TestTransaction_MarkFailedRecordsReason(t *testing.T) {
	tx := NewTransaction(TypeWithdrawal, decimal.NewFromInt(100), USD)
	tx.MarkProcessing()

	if !tx.MarkFailed("insufficient funds: balance 50, requested 100") {
		t.Fatal("processing -> failed should succeed")
	}
	if tx.Status() != StatusFailed {
		t.Fatalf("expected failed, got %s", tx.Status())
	}
	if tx.FailureReason() == "" {
		t.Error("failed transaction should carry a failure reason")
	}
	if tx.MarkCompleted() {
		t.Error("failed transaction must not complete")
	}
}

func TestTransaction_CancelOnlyWhilePending(t *testing.T) {
	tx := NewTransaction(TypeTransfer, decimal.NewFromInt(100), USD)

	if !tx.Cancel() {
		t.Fatal("cancelling a pending transaction should succeed")
	}
	if tx.Status() != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", tx.Status())
	}
	if tx.Cancel() {
		t.Error("second cancel should report false")
	}
	if tx.MarkProcessing() {
		t.Error("cancelled transaction must not enter processing")
	}

	running := NewTransaction(TypeTransfer, decimal.NewFromInt(100), USD)
	running.MarkProcessing()
	if running.Cancel() {
		t.Error("cancelling a processing transaction should report false")
	}
}

func TestTransaction_TotalAmount(t *testing.T) {
	tx := NewTransaction(TypeExternalTransfer, decimal.NewFromInt(10000), RUB).
		WithFee(decimal.NewFromInt(150))

	if !tx.TotalAmount().Equal(decimal.NewFromInt(10150)) {
		t.Errorf("expected total 10150, got %s", tx.TotalAmount())
	}
}

func TestTransaction_Snapshot(t *testing.T) {
	tx := NewTransaction(TypeTransfer, decimal.NewFromInt(500), EUR).
		WithAccounts("A1", "A2").
		WithPriority(PriorityHigh).
		WithFee(decimal.NewFromInt(5))

	snap := tx.Snapshot()
	if snap.Status != StatusPending || snap.ProcessedAt != nil {
		t.Errorf("fresh snapshot should be pending without processed time: %+v", snap)
	}
	if snap.FromAccountID != "A1" || snap.ToAccountID != "A2" {
		t.Errorf("snapshot lost account references: %+v", snap)
	}
	if snap.Priority != PriorityHigh {
		t.Errorf("expected priority high, got %d", snap.Priority)
	}

	tx.MarkProcessing()
	tx.MarkCompleted()
	snap = tx.Snapshot()
	if snap.Status != StatusCompleted || snap.ProcessedAt == nil {
		t.Errorf("snapshot should reflect completion: %+v", snap)
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow} {
		if !p.Valid() {
			t.Errorf("priority %d should be valid", p)
		}
	}
	if Priority(7).Valid() {
		t.Error("priority 7 should be invalid")
	}
	if Priority(-1).Valid() {
		t.Error("priority -1 should be invalid")
	}
}
