package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

type publishedEvent struct {
	Topic   string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (r *recordingPublisher) Events() []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]publishedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNotificationHub_PublishesOperationEvent(t *testing.T) {
	pub := &recordingPublisher{}
	hub := NewNotificationHub(nil, nil, pub, nil, HubConfig{Workers: 1}, nil)
	defer hub.Shutdown(context.Background())

	hub.OnDeposit("acc1", domain.USD, decimal.NewFromInt(100), decimal.NewFromInt(1100))

	waitFor(t, func() bool { return len(pub.Events()) == 1 }, "operation event was not published")

	event := pub.Events()[0]
	if event.Topic != TopicAccountOperations {
		t.Errorf("expected topic %q, got %q", TopicAccountOperations, event.Topic)
	}
	if event.Key != "acc1" {
		t.Errorf("expected key acc1, got %q", event.Key)
	}
	payload, ok := event.Payload.(AccountEvent)
	if !ok {
		t.Fatalf("expected AccountEvent payload, got %T", event.Payload)
	}
	if payload.Operation != "deposit" {
		t.Errorf("expected deposit operation, got %q", payload.Operation)
	}
	if !payload.Balance.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("expected balance 1100, got %s", payload.Balance)
	}
}

func TestNotificationHub_CompletedTransactionEmailsAlert(t *testing.T) {
	email := &MockEmailSender{}
	pub := &recordingPublisher{}
	hub := NewNotificationHub(email, nil, pub, nil, HubConfig{Workers: 1, AlertEmail: "ops@bank.local"}, nil)
	defer hub.Shutdown(context.Background())

	tx := domain.NewTransaction(domain.TypeDeposit, decimal.NewFromInt(500), domain.RUB).
		WithAccounts("", "acc1")
	tx.MarkProcessing()
	tx.MarkCompleted()
	hub.NotifyTransaction(tx.Snapshot())

	waitFor(t, func() bool { return len(email.Sent()) == 1 }, "alert email was not sent")

	sent := email.Sent()[0]
	if sent.To != "ops@bank.local" {
		t.Errorf("expected recipient ops@bank.local, got %q", sent.To)
	}
	if sent.Subject != "Transaction Completed" {
		t.Errorf("expected completion subject, got %q", sent.Subject)
	}

	waitFor(t, func() bool { return len(pub.Events()) == 1 }, "outcome event was not published")
	if pub.Events()[0].Topic != TopicTransactionOutcomes {
		t.Errorf("expected topic %q, got %q", TopicTransactionOutcomes, pub.Events()[0].Topic)
	}
}

func TestNotificationHub_FailedTransactionTriggersSMS(t *testing.T) {
	sms := &MockSMSSender{}
	hub := NewNotificationHub(nil, sms, nil, nil, HubConfig{Workers: 1, AlertPhone: "+70000000000"}, nil)
	defer hub.Shutdown(context.Background())

	tx := domain.NewTransaction(domain.TypeWithdrawal, decimal.NewFromInt(500), domain.RUB).
		WithAccounts("acc1", "")
	tx.MarkProcessing()
	tx.MarkFailed("insufficient funds")
	hub.NotifyTransaction(tx.Snapshot())

	waitFor(t, func() bool { return len(sms.Sent()) == 1 }, "alert SMS was not sent")

	if !strings.Contains(sms.Sent()[0].Message, "insufficient funds") {
		t.Errorf("expected failure reason in SMS, got %q", sms.Sent()[0].Message)
	}
}

func TestNotificationHub_ShutdownCompletes(t *testing.T) {
	hub := NewNotificationHub(nil, nil, nil, nil, HubConfig{Workers: 2}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
