package processor

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"banking_engine/internal/domain"
)

// ErrNoPendingTransactions is returned by Next when both the ready and the
// delayed structures are empty after promotion.
var ErrNoPendingTransactions = errors.New("no pending transactions")

// queueEntry pairs a transaction with its ordering key. seq is a monotonic
// insertion counter that makes the comparators a total order when priority
// and creation time both tie.
type queueEntry struct {
	tx        *domain.Transaction
	executeAt time.Time // zero for ready entries
	seq       uint64
}

// readyHeap orders by (priority asc, creation time asc, seq asc).
type readyHeap []*queueEntry

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.tx.Priority != b.tx.Priority {
		return a.tx.Priority < b.tx.Priority
	}
	if !a.tx.CreatedAt.Equal(b.tx.CreatedAt) {
		return a.tx.CreatedAt.Before(b.tx.CreatedAt)
	}
	return a.seq < b.seq
}

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(*queueEntry)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// delayedHeap orders by execution time.
type delayedHeap []*queueEntry

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	if !h[i].executeAt.Equal(h[j].executeAt) {
		return h[i].executeAt.Before(h[j].executeAt)
	}
	return h[i].seq < h[j].seq
}

func (h delayedHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x any) { *h = append(*h, x.(*queueEntry)) }

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// TransactionQueue hands out pending transactions in priority order and
// holds delayed ones until they fall due.
type TransactionQueue struct {
	mu      sync.Mutex
	ready   readyHeap
	delayed delayedHeap
	lookup  map[string]*domain.Transaction
	seq     uint64
	now     func() time.Time
}

func NewTransactionQueue() *TransactionQueue {
	return &TransactionQueue{
		lookup: make(map[string]*domain.Transaction),
		now:    time.Now,
	}
}

// Add registers tx and makes it available immediately, or once delay has
// elapsed when delay is positive. The transaction stays Pending either way.
func (q *TransactionQueue) Add(tx *domain.Transaction, delay time.Duration) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", domain.ErrInvalidOperation)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.lookup[tx.ID]; exists {
		return fmt.Errorf("%w: transaction %s already queued", domain.ErrInvalidOperation, tx.ID)
	}
	q.lookup[tx.ID] = tx
	q.seq++
	entry := &queueEntry{tx: tx, seq: q.seq}
	if delay > 0 {
		entry.executeAt = q.now().Add(delay)
		heap.Push(&q.delayed, entry)
		return nil
	}
	heap.Push(&q.ready, entry)
	return nil
}

// Next promotes every delayed entry already due, then pops the highest
// precedence ready entry and moves it to Processing. A transaction cancelled
// while queued is returned with its status untouched; callers must treat any
// non-Processing result as a no-op.
func (q *TransactionQueue) Next() (*domain.Transaction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteLocked()
	if q.ready.Len() == 0 {
		return nil, ErrNoPendingTransactions
	}
	entry := heap.Pop(&q.ready).(*queueEntry)
	entry.tx.MarkProcessing()
	return entry.tx, nil
}

// promoteLocked moves due delayed entries into the ready heap. It is a time
// comparison, never a sleep, so a single pass can ready many entries at
// once. Caller must hold q.mu.
func (q *TransactionQueue) promoteLocked() {
	now := q.now()
	for q.delayed.Len() > 0 && !q.delayed[0].executeAt.After(now) {
		entry := heap.Pop(&q.delayed).(*queueEntry)
		entry.executeAt = time.Time{}
		heap.Push(&q.ready, entry)
	}
}

// Cancel succeeds only while the transaction is still Pending. The entry is
// not removed from the underlying structures; a later Next may still surface
// the cancelled transaction.
func (q *TransactionQueue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	tx, ok := q.lookup[id]
	if !ok {
		return false
	}
	return tx.Cancel()
}

// Get looks a transaction up by id regardless of queue membership.
func (q *TransactionQueue) Get(id string) (*domain.Transaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	tx, ok := q.lookup[id]
	return tx, ok
}

// PendingCount reports entries still inside the queue structures, including
// cancelled ones that Next has not yet surfaced.
func (q *TransactionQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len() + q.delayed.Len()
}
