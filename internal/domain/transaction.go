package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string
type TransactionStatus string

// Priority orders queue consumption; a lower value dequeues first.
type Priority int

const (
	TypeDeposit          TransactionType = "deposit"
	TypeWithdrawal       TransactionType = "withdrawal"
	TypeTransfer         TransactionType = "transfer"
	TypeExternalTransfer TransactionType = "external_transfer"

	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"

	PriorityUrgent Priority = 0
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

// Transaction is an immutable intent plus a guarded lifecycle. The exported
// fields are fixed at creation; status, failure reason and processing time
// change only through the Mark methods.
type Transaction struct {
	ID            string
	Type          TransactionType
	Amount        decimal.Decimal
	Currency      Currency
	FromAccountID string
	ToAccountID   string
	Fee           decimal.Decimal
	Priority      Priority
	CreatedAt     time.Time

	mu            sync.Mutex
	status        TransactionStatus
	failureReason string
	processedAt   time.Time
}

func NewTransaction(t TransactionType, amount decimal.Decimal, currency Currency) *Transaction {
	return &Transaction{
		ID:        uuid.NewString(),
		Type:      t,
		Amount:    amount,
		Currency:  currency,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
		status:    StatusPending,
	}
}

func (tx *Transaction) WithAccounts(fromID, toID string) *Transaction {
	tx.FromAccountID = fromID
	tx.ToAccountID = toID
	return tx
}

func (tx *Transaction) WithPriority(p Priority) *Transaction {
	tx.Priority = p
	return tx
}

func (tx *Transaction) WithFee(fee decimal.Decimal) *Transaction {
	tx.Fee = fee
	return tx
}

// TotalAmount is the amount the sender is debited: amount plus fee.
func (tx *Transaction) TotalAmount() decimal.Decimal {
	return tx.Amount.Add(tx.Fee)
}

func (tx *Transaction) Status() TransactionStatus {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.status
}

func (tx *Transaction) FailureReason() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.failureReason
}

func (tx *Transaction) ProcessedAt() time.Time {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.processedAt
}

// MarkProcessing moves the transaction from Pending to Processing. It
// reports false for any other current status.
func (tx *Transaction) MarkProcessing() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusPending {
		return false
	}
	tx.status = StatusProcessing
	return true
}

// MarkCompleted moves the transaction from Processing to Completed and
// stamps the processing time.
func (tx *Transaction) MarkCompleted() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusProcessing {
		return false
	}
	tx.status = StatusCompleted
	tx.processedAt = time.Now()
	return true
}

// MarkFailed moves the transaction from Processing to Failed, recording the
// human-readable reason.
func (tx *Transaction) MarkFailed(reason string) bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusProcessing {
		return false
	}
	tx.status = StatusFailed
	tx.failureReason = reason
	tx.processedAt = time.Now()
	return true
}

// Cancel succeeds only while the transaction is still Pending.
func (tx *Transaction) Cancel() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.status != StatusPending {
		return false
	}
	tx.status = StatusCancelled
	return true
}

// TransactionSnapshot is a point-in-time view safe for serialization.
type TransactionSnapshot struct {
	ID            string            `json:"id"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Fee           decimal.Decimal   `json:"fee"`
	Currency      Currency          `json:"currency"`
	FromAccountID string            `json:"from_account_id,omitempty"`
	ToAccountID   string            `json:"to_account_id,omitempty"`
	Priority      Priority          `json:"priority"`
	Status        TransactionStatus `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}

func (tx *Transaction) Snapshot() TransactionSnapshot {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	snap := TransactionSnapshot{
		ID:            tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		Currency:      tx.Currency,
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Priority:      tx.Priority,
		Status:        tx.status,
		FailureReason: tx.failureReason,
		CreatedAt:     tx.CreatedAt,
	}
	if !tx.processedAt.IsZero() {
		t := tx.processedAt
		snap.ProcessedAt = &t
	}
	return snap
}
