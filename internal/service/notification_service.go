package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/pkg/metrics"
)

type NotificationType string

const (
	NotificationEmail NotificationType = "email"
	NotificationSMS   NotificationType = "sms"
	NotificationEvent NotificationType = "event"
)

const (
	TopicAccountOperations   = "account-operations"
	TopicTransactionOutcomes = "transaction-outcomes"
)

type NotificationMessage struct {
	Type      NotificationType
	Recipient string
	Subject   string
	Message   string
	Topic     string
	Key       string
	Payload   any
	Priority  int
	Metadata  map[string]string
	CreatedAt time.Time
}

// AccountEvent is the payload published for every balance mutation.
type AccountEvent struct {
	AccountID  string          `json:"account_id"`
	Operation  string          `json:"operation"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type SMSSender interface {
	SendSMS(to, message string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type HubConfig struct {
	Workers    int
	AlertEmail string
	AlertPhone string
}

var _ domain.OperationObserver = (*NotificationHub)(nil)

// NotificationHub fans account operations and transaction outcomes out to
// the configured sinks. It implements the account observer contract, so
// enqueueing never blocks: the caller holds the account lock.
type NotificationHub struct {
	emailSender  EmailSender
	smsSender    SMSSender
	publisher    EventPublisher
	collector    *metrics.MetricsCollector
	alertEmail   string
	alertPhone   string
	messageQueue chan NotificationMessage
	workers      int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

func NewNotificationHub(
	emailSender EmailSender,
	smsSender SMSSender,
	publisher EventPublisher,
	collector *metrics.MetricsCollector,
	cfg HubConfig,
	logger *slog.Logger,
) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	hub := &NotificationHub{
		emailSender:  emailSender,
		smsSender:    smsSender,
		publisher:    publisher,
		collector:    collector,
		alertEmail:   cfg.AlertEmail,
		alertPhone:   cfg.AlertPhone,
		messageQueue: make(chan NotificationMessage, 1000),
		workers:      cfg.Workers,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}

	hub.startWorkers()

	return hub
}

func (h *NotificationHub) OnDeposit(accountID string, currency domain.Currency, amount, newBalance decimal.Decimal) {
	h.onOperation(accountID, currency, "deposit", amount, newBalance)
}

func (h *NotificationHub) OnWithdrawal(accountID string, currency domain.Currency, amount, newBalance decimal.Decimal) {
	h.onOperation(accountID, currency, "withdrawal", amount, newBalance)
}

func (h *NotificationHub) onOperation(accountID string, currency domain.Currency, operation string, amount, newBalance decimal.Decimal) {
	if h.collector != nil {
		h.collector.UpdateAccountBalance(accountID, string(currency), newBalance.InexactFloat64())
	}
	if h.publisher == nil {
		return
	}
	h.enqueue(NotificationMessage{
		Type:    NotificationEvent,
		Topic:   TopicAccountOperations,
		Key:     accountID,
		Message: fmt.Sprintf("%s: %s %s. Balance: %s", operation, amount, currency, newBalance),
		Payload: AccountEvent{
			AccountID:  accountID,
			Operation:  operation,
			Currency:   string(currency),
			Amount:     amount,
			Balance:    newBalance,
			OccurredAt: time.Now().UTC(),
		},
		Priority:  5,
		CreatedAt: time.Now(),
	})
}

// NotifyTransaction delivers the outcome of a terminal transaction.
func (h *NotificationHub) NotifyTransaction(snapshot domain.TransactionSnapshot) {
	var subject, message string

	switch snapshot.Status {
	case domain.StatusCompleted:
		subject = "Transaction Completed"
		message = fmt.Sprintf("Your transaction of %s %s has been completed successfully.", snapshot.Amount, snapshot.Currency)
	case domain.StatusFailed:
		subject = "Transaction Failed"
		message = fmt.Sprintf("Your transaction of %s %s has failed. Reason: %s", snapshot.Amount, snapshot.Currency, snapshot.FailureReason)
	default:
		subject = "Transaction Update"
		message = fmt.Sprintf("Your transaction of %s %s is now %s.", snapshot.Amount, snapshot.Currency, snapshot.Status)
	}

	metadata := map[string]string{
		"transaction_id":   snapshot.ID,
		"transaction_type": string(snapshot.Type),
		"status":           string(snapshot.Status),
	}

	if h.publisher != nil {
		h.enqueue(NotificationMessage{
			Type:      NotificationEvent,
			Topic:     TopicTransactionOutcomes,
			Key:       snapshot.ID,
			Subject:   subject,
			Message:   message,
			Payload:   snapshot,
			Priority:  5,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		})
	}

	if h.emailSender != nil && h.alertEmail != "" {
		h.enqueue(NotificationMessage{
			Type:      NotificationEmail,
			Recipient: h.alertEmail,
			Subject:   subject,
			Message:   message,
			Priority:  5,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		})
	}

	if snapshot.Status == domain.StatusFailed && h.smsSender != nil && h.alertPhone != "" {
		h.enqueue(NotificationMessage{
			Type:      NotificationSMS,
			Recipient: h.alertPhone,
			Subject:   subject,
			Message:   message,
			Priority:  10,
			Metadata:  metadata,
			CreatedAt: time.Now(),
		})
	}
}

func (h *NotificationHub) enqueue(msg NotificationMessage) {
	select {
	case h.messageQueue <- msg:
	default:
		h.logger.Warn("Notification queue full, dropping message",
			slog.String("type", string(msg.Type)),
			slog.String("subject", msg.Subject))
	}
}

func (h *NotificationHub) startWorkers() {
	for i := 0; i < h.workers; i++ {
		h.wg.Add(1)
		go h.worker(i)
	}
}

func (h *NotificationHub) worker(id int) {
	defer h.wg.Done()

	h.logger.Info("Notification worker started", slog.Int("worker_id", id))

	for {
		select {
		case msg := <-h.messageQueue:
			h.processNotification(msg, id)
		case <-h.shutdownChan:
			h.logger.Info("Notification worker stopping", slog.Int("worker_id", id))
			return
		}
	}
}

func (h *NotificationHub) processNotification(msg NotificationMessage, workerID int) {
	startTime := time.Now()
	var err error

	switch msg.Type {
	case NotificationEmail:
		err = h.emailSender.SendEmail(msg.Recipient, msg.Subject, msg.Message)
	case NotificationSMS:
		err = h.smsSender.SendSMS(msg.Recipient, msg.Message)
	case NotificationEvent:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = h.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Payload)
		cancel()
	default:
		err = fmt.Errorf("unknown notification type: %s", msg.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		h.logger.Error("Failed to send notification",
			slog.String("type", string(msg.Type)),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	} else {
		h.logger.Info("Notification sent successfully",
			slog.String("type", string(msg.Type)),
			slog.String("recipient", msg.Recipient),
			slog.Int("worker_id", workerID),
			slog.Duration("duration", duration))
	}
}

func (h *NotificationHub) Shutdown(ctx context.Context) error {
	close(h.shutdownChan)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Notification hub shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SentEmail struct {
	To      string
	Subject string
	Body    string
}

type MockEmailSender struct {
	mu   sync.Mutex
	sent []SentEmail
}

func (m *MockEmailSender) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *MockEmailSender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

type SentSMS struct {
	To      string
	Message string
}

type MockSMSSender struct {
	mu   sync.Mutex
	sent []SentSMS
}

func (m *MockSMSSender) SendSMS(to, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentSMS{To: to, Message: message})
	return nil
}

func (m *MockSMSSender) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}
