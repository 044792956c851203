package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/internal/repository"
	"banking_engine/pkg/crypto"
	"banking_engine/pkg/currency"
	"banking_engine/pkg/metrics"
	"banking_engine/pkg/validator"
)

const (
	DefaultWorkers      = 4
	DefaultMaxRetries   = 3
	DefaultPollInterval = 50 * time.Millisecond
)

// Notifier receives snapshots of transactions that reached a terminal
// status. The notification hub implements it.
type Notifier interface {
	NotifyTransaction(snapshot domain.TransactionSnapshot)
}

type Config struct {
	Workers      int
	MaxRetries   int
	PollInterval time.Duration
}

type handlerFunc func(ctx context.Context, tx *domain.Transaction) error

type TransactionProcessor struct {
	accountRepo repository.AccountRepository
	txRepo      repository.TransactionRepository
	queue       *TransactionQueue
	converter   *currency.Converter
	validator   *validator.TransactionValidator
	handlers    map[domain.TransactionType]handlerFunc

	signer   *crypto.Signer
	notifier Notifier
	metrics  *metrics.MetricsCollector

	workers      int
	maxRetries   int
	pollInterval time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	failed []*domain.Transaction
}

func NewTransactionProcessor(
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	queue *TransactionQueue,
	converter *currency.Converter,
	cfg Config,
	logger *slog.Logger,
) *TransactionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	p := &TransactionProcessor{
		accountRepo:  accountRepo,
		txRepo:       txRepo,
		queue:        queue,
		converter:    converter,
		validator:    validator.NewTransactionValidator(converter),
		workers:      cfg.Workers,
		maxRetries:   cfg.MaxRetries,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}

	p.handlers = map[domain.TransactionType]handlerFunc{
		domain.TypeDeposit:          p.processDeposit,
		domain.TypeWithdrawal:       p.processWithdrawal,
		domain.TypeTransfer:         p.processTransfer,
		domain.TypeExternalTransfer: p.processExternalTransfer,
	}

	return p
}

func (p *TransactionProcessor) WithSigner(signer *crypto.Signer) *TransactionProcessor {
	p.signer = signer
	return p
}

func (p *TransactionProcessor) WithNotifier(notifier Notifier) *TransactionProcessor {
	p.notifier = notifier
	return p
}

func (p *TransactionProcessor) WithMetrics(collector *metrics.MetricsCollector) *TransactionProcessor {
	p.metrics = collector
	return p
}

// Enqueue validates tx and schedules it for execution after delay.
func (p *TransactionProcessor) Enqueue(tx *domain.Transaction, delay time.Duration) error {
	if err := p.validator.ValidateTransaction(tx); err != nil {
		return err
	}
	if err := p.queue.Add(tx, delay); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.SetQueueDepth(p.queue.PendingCount())
	}
	p.logger.Info("Transaction queued",
		slog.String("transaction_id", tx.ID),
		slog.String("type", string(tx.Type)),
		slog.String("amount", tx.Amount.String()),
		slog.Duration("delay", delay))
	return nil
}

// Process runs tx through its handler under the retry policy and reports
// whether it completed. Business-rule rejections fail the transaction
// immediately; any other error is retried up to the configured maximum.
// Callers inspect the transaction's status and failure reason afterwards.
func (p *TransactionProcessor) Process(ctx context.Context, tx *domain.Transaction) bool {
	if tx == nil {
		return false
	}

	if tx.Status() == domain.StatusPending {
		tx.MarkProcessing()
	}
	if tx.Status() != domain.StatusProcessing {
		p.logger.InfoContext(ctx, "Skipping transaction",
			slog.String("transaction_id", tx.ID),
			slog.String("status", string(tx.Status())))
		return false
	}

	handler, ok := p.handlers[tx.Type]
	if !ok {
		p.fail(ctx, tx, fmt.Sprintf("unknown transaction type: %s", tx.Type))
		return false
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		lastErr = handler(ctx, tx)
		if lastErr == nil {
			p.complete(ctx, tx, start)
			return true
		}
		if domain.IsTerminal(lastErr) {
			p.fail(ctx, tx, lastErr.Error())
			return false
		}
		p.logger.WarnContext(ctx, "Transient failure, retrying",
			slog.String("transaction_id", tx.ID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))
		if p.metrics != nil {
			p.metrics.RecordRetry(string(tx.Type))
		}
	}

	p.fail(ctx, tx, fmt.Sprintf("max retries exceeded after %d attempts: %v", p.maxRetries, lastErr))
	return false
}

func (p *TransactionProcessor) complete(ctx context.Context, tx *domain.Transaction, start time.Time) {
	tx.MarkCompleted()
	p.record(ctx, tx)
	if p.metrics != nil {
		p.metrics.RecordTransaction(string(tx.Type), time.Since(start), true)
	}
	p.logger.InfoContext(ctx, "Transaction completed",
		slog.String("transaction_id", tx.ID),
		slog.String("type", string(tx.Type)),
		slog.String("amount", tx.Amount.String()))
}

func (p *TransactionProcessor) fail(ctx context.Context, tx *domain.Transaction, reason string) {
	tx.MarkFailed(reason)

	p.mu.Lock()
	p.failed = append(p.failed, tx)
	p.mu.Unlock()

	p.record(ctx, tx)
	if p.metrics != nil {
		p.metrics.RecordTransaction(string(tx.Type), 0, false)
	}
	p.logger.WarnContext(ctx, "Transaction failed",
		slog.String("transaction_id", tx.ID),
		slog.String("type", string(tx.Type)),
		slog.String("reason", reason))
}

// record persists the terminal transaction and emits the signed audit
// entry and outcome notification.
func (p *TransactionProcessor) record(ctx context.Context, tx *domain.Transaction) {
	if p.txRepo != nil {
		if err := p.txRepo.Save(ctx, tx); err != nil {
			p.logger.ErrorContext(ctx, "Failed to save transaction",
				slog.String("transaction_id", tx.ID),
				slog.String("error", err.Error()))
		}
	}
	if p.signer != nil {
		signature := p.signer.SignTransaction(tx.ID, tx.Amount, string(tx.Currency), tx.CreatedAt.Unix())
		p.logger.InfoContext(ctx, "Audit record signed",
			slog.String("transaction_id", tx.ID),
			slog.String("status", string(tx.Status())),
			slog.String("signature", signature))
	}
	if p.notifier != nil {
		p.notifier.NotifyTransaction(tx.Snapshot())
	}
}

func (p *TransactionProcessor) processDeposit(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing deposit",
		slog.String("transaction_id", tx.ID),
		slog.String("to_account", tx.ToAccountID),
		slog.String("amount", tx.Amount.String()))

	receiver, err := p.resolveAccount(ctx, tx.ToAccountID, "receiver")
	if err != nil {
		return err
	}
	return receiver.Deposit(tx.Amount)
}

func (p *TransactionProcessor) processWithdrawal(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing withdrawal",
		slog.String("transaction_id", tx.ID),
		slog.String("from_account", tx.FromAccountID),
		slog.String("amount", tx.Amount.String()))

	sender, err := p.resolveAccount(ctx, tx.FromAccountID, "sender")
	if err != nil {
		return err
	}
	if err := p.requireActive(sender); err != nil {
		return err
	}
	return sender.Withdraw(tx.TotalAmount())
}

func (p *TransactionProcessor) processTransfer(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing transfer",
		slog.String("transaction_id", tx.ID),
		slog.String("from_account", tx.FromAccountID),
		slog.String("to_account", tx.ToAccountID),
		slog.String("amount", tx.Amount.String()))

	sender, err := p.resolveAccount(ctx, tx.FromAccountID, "sender")
	if err != nil {
		return err
	}
	receiver, err := p.resolveAccount(ctx, tx.ToAccountID, "receiver")
	if err != nil {
		return err
	}
	if err := p.requireActive(sender); err != nil {
		return err
	}
	if err := p.requireActive(receiver); err != nil {
		return err
	}
	if err := p.checkFunds(sender, tx.TotalAmount()); err != nil {
		return err
	}

	credit := tx.Amount
	if sender.Currency() != receiver.Currency() {
		converted, err := p.converter.Convert(tx.Amount, sender.Currency(), receiver.Currency())
		if err != nil {
			return err
		}
		credit = converted
	}

	if err := sender.Withdraw(tx.TotalAmount()); err != nil {
		return err
	}
	// The two legs are separate operations; a deposit rejection after a
	// successful debit leaves the sender debited.
	return receiver.Deposit(credit)
}

func (p *TransactionProcessor) processExternalTransfer(ctx context.Context, tx *domain.Transaction) error {
	p.logger.InfoContext(ctx, "Processing external transfer",
		slog.String("transaction_id", tx.ID),
		slog.String("from_account", tx.FromAccountID),
		slog.String("amount", tx.Amount.String()),
		slog.String("fee", tx.Fee.String()))

	sender, err := p.resolveAccount(ctx, tx.FromAccountID, "sender")
	if err != nil {
		return err
	}
	if err := p.requireActive(sender); err != nil {
		return err
	}
	if err := p.checkFunds(sender, tx.TotalAmount()); err != nil {
		return err
	}
	// Funds leave the system; there is no receiver-side leg.
	return sender.Withdraw(tx.TotalAmount())
}

func (p *TransactionProcessor) resolveAccount(ctx context.Context, id, role string) (domain.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s account is required", domain.ErrInvalidOperation, role)
	}
	account, err := p.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s account %s not found", domain.ErrInvalidOperation, role, id)
		}
		// Storage errors are transient and stay retryable.
		return nil, fmt.Errorf("lookup %s account %s: %w", role, id, err)
	}
	return account, nil
}

func (p *TransactionProcessor) requireActive(account domain.Account) error {
	switch account.Status() {
	case domain.AccountFrozen:
		return fmt.Errorf("%w: account %s", domain.ErrAccountFrozen, account.ID())
	case domain.AccountClosed:
		return fmt.Errorf("%w: account %s", domain.ErrAccountClosed, account.ID())
	}
	return nil
}

// checkFunds rejects a transfer early when the sender cannot cover the
// debit. Overdraft-capable accounts enforce their own floor in Withdraw.
func (p *TransactionProcessor) checkFunds(sender domain.Account, total decimal.Decimal) error {
	if _, ok := sender.(domain.OverdraftAccount); ok {
		return nil
	}
	if sender.Balance().LessThan(total) {
		return fmt.Errorf("%w: balance %s, required %s",
			domain.ErrInsufficientFunds, sender.Balance(), total)
	}
	return nil
}

// FailedTransactions returns the transactions that reached the failed
// status, in failure order.
func (p *TransactionProcessor) FailedTransactions() []*domain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.Transaction, len(p.failed))
	copy(out, p.failed)
	return out
}

// GetTransaction looks tx up in the queue first so transactions still in
// flight are visible before their terminal record is saved.
func (p *TransactionProcessor) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if tx, ok := p.queue.Get(id); ok {
		return tx, nil
	}
	return p.txRepo.GetByID(ctx, id)
}

func (p *TransactionProcessor) CancelTransaction(id string) bool {
	return p.queue.Cancel(id)
}

func (p *TransactionProcessor) PendingCount() int {
	return p.queue.PendingCount()
}

// Run starts the worker pool and blocks until ctx is cancelled. Workers
// poll the queue on a ticker; entries cancelled while queued are drained
// and skipped without touching any account.
func (p *TransactionProcessor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	p.logger.Info("Transaction processor stopped")
}

func (p *TransactionProcessor) worker(ctx context.Context, id int) {
	logger := p.logger.With(slog.Int("worker_id", id))
	logger.Info("Worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopping")
			return
		case <-ticker.C:
			p.drainQueue(ctx)
		}
	}
}

// drainQueue processes every transaction that is ready, so a single tick
// clears a burst of promoted entries.
func (p *TransactionProcessor) drainQueue(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		tx, err := p.queue.Next()
		if err != nil {
			return
		}
		if p.metrics != nil {
			p.metrics.SetQueueDepth(p.queue.PendingCount())
		}
		p.Process(ctx, tx)
	}
}
