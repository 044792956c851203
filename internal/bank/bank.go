package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/internal/repository"
	"banking_engine/pkg/currency"
)

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrClientLocked = errors.New("client is locked")
)

const (
	adminActor   = "admin"
	minClientAge = 18
)

// Bank is the client registry. It owns client records and their PIN
// verification; accounts themselves live in the account repository.
type Bank struct {
	accounts     repository.AccountRepository
	converter    *currency.Converter
	observer     domain.OperationObserver
	baseCurrency domain.Currency

	mu        sync.RWMutex
	clients   map[string]*Client
	nameIndex map[string]string
	order     []string

	logger *slog.Logger
}

func NewBank(
	accounts repository.AccountRepository,
	converter *currency.Converter,
	observer domain.OperationObserver,
	logger *slog.Logger,
) *Bank {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		accounts:     accounts,
		converter:    converter,
		observer:     observer,
		baseCurrency: domain.RUB,
		clients:      make(map[string]*Client),
		nameIndex:    make(map[string]string),
		logger:       logger,
	}
}

// AddClient registers a client and returns the generated PIN alongside the
// client id. The PIN is shown exactly once; only its hash is kept.
func (b *Bank) AddClient(fullName string, birthDate time.Time) (string, string, error) {
	if fullName == "" {
		return "", "", fmt.Errorf("%w: client name is required", domain.ErrInvalidOperation)
	}
	if age(birthDate, time.Now()) < minClientAge {
		return "", "", fmt.Errorf("%w: client must be at least %d years old", domain.ErrInvalidOperation, minClientAge)
	}

	pin, hash, err := generatePINAndHash()
	if err != nil {
		return "", "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.nameIndex[fullName]; exists {
		return "", "", fmt.Errorf("%w: client %q is already registered", domain.ErrInvalidOperation, fullName)
	}
	client := newClient(fullName, birthDate, hash)
	b.clients[client.ID()] = client
	b.nameIndex[fullName] = client.ID()
	b.order = append(b.order, client.ID())

	b.logger.Info("Client registered",
		slog.String("client_id", client.ID()),
		slog.String("full_name", fullName))

	return client.ID(), pin, nil
}

func (b *Bank) Authenticate(clientID, pin string) error {
	client, ok := b.client(clientID)
	if !ok {
		return ErrAuthFailed
	}
	return client.verifyPIN(pin)
}

func (b *Bank) GetClient(clientID string) (*Client, error) {
	client, ok := b.client(clientID)
	if !ok {
		return nil, fmt.Errorf("%w: client %s not found", domain.ErrInvalidOperation, clientID)
	}
	return client, nil
}

// UnlockClient clears a lockout caused by failed PIN attempts.
func (b *Bank) UnlockClient(clientID, actor string) error {
	if err := b.requireAdmin(actor); err != nil {
		return err
	}
	client, ok := b.client(clientID)
	if !ok {
		return fmt.Errorf("%w: client %s not found", domain.ErrInvalidOperation, clientID)
	}
	client.unlock()
	b.logger.Info("Client unlocked",
		slog.String("client_id", clientID),
		slog.String("actor", actor))
	return nil
}

// OpenAccount authenticates the client and opens an account in their name.
// The bank's operation observer is attached unless the spec brings its own.
func (b *Bank) OpenAccount(ctx context.Context, clientID, pin string, spec domain.AccountSpec) (domain.Account, error) {
	if err := b.Authenticate(clientID, pin); err != nil {
		return nil, err
	}
	client, _ := b.client(clientID)

	spec.Owner = clientID
	if spec.Observer == nil {
		spec.Observer = b.observer
	}

	account, err := domain.NewAccount(spec)
	if err != nil {
		return nil, err
	}
	if err := b.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	client.appendAccount(account.ID())

	b.logger.InfoContext(ctx, "Account opened",
		slog.String("client_id", clientID),
		slog.String("account_id", account.ID()),
		slog.String("kind", string(account.Kind())))

	return account, nil
}

func (b *Bank) FreezeAccount(ctx context.Context, accountID, actor string) error {
	return b.setAccountStatus(ctx, accountID, actor, domain.AccountFrozen, "Account frozen")
}

func (b *Bank) UnfreezeAccount(ctx context.Context, accountID, actor string) error {
	return b.setAccountStatus(ctx, accountID, actor, domain.AccountActive, "Account unfrozen")
}

func (b *Bank) CloseAccount(ctx context.Context, accountID, actor string) error {
	return b.setAccountStatus(ctx, accountID, actor, domain.AccountClosed, "Account closed")
}

func (b *Bank) setAccountStatus(ctx context.Context, accountID, actor string, status domain.AccountStatus, event string) error {
	if err := b.requireAdmin(actor); err != nil {
		return err
	}
	account, err := b.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%w: account %s not found", domain.ErrInvalidOperation, accountID)
	}
	// Closed is terminal.
	if account.Status() == domain.AccountClosed {
		return fmt.Errorf("%w: account %s", domain.ErrAccountClosed, accountID)
	}
	account.SetStatus(status)
	b.logger.InfoContext(ctx, event,
		slog.String("account_id", accountID),
		slog.String("actor", actor))
	return nil
}

// SearchAccounts lists account details for a client in the order the
// accounts were opened.
func (b *Bank) SearchAccounts(ctx context.Context, clientID string) ([]map[string]any, error) {
	client, ok := b.client(clientID)
	if !ok {
		return nil, fmt.Errorf("%w: client %s not found", domain.ErrInvalidOperation, clientID)
	}

	ids := client.AccountIDs()
	infos := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		account, err := b.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load account %s: %w", id, err)
		}
		infos = append(infos, account.Info())
	}
	return infos, nil
}

// TotalBalance sums the client's active account balances converted to the
// bank's base currency. Frozen and closed accounts do not count.
func (b *Bank) TotalBalance(ctx context.Context, clientID string) (decimal.Decimal, error) {
	client, ok := b.client(clientID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: client %s not found", domain.ErrInvalidOperation, clientID)
	}

	total := decimal.Zero
	for _, id := range client.AccountIDs() {
		account, err := b.accounts.GetByID(ctx, id)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load account %s: %w", id, err)
		}
		if account.Status() != domain.AccountActive {
			continue
		}
		value, err := b.converter.Convert(account.Balance(), account.Currency(), b.baseCurrency)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

type ClientStanding struct {
	ClientID     string          `json:"client_id"`
	FullName     string          `json:"full_name"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// ClientsRanking returns the top n clients by combined active balance,
// richest first. Ties keep registration order.
func (b *Bank) ClientsRanking(ctx context.Context, n int) ([]ClientStanding, error) {
	b.mu.RLock()
	ids := make([]string, len(b.order))
	copy(ids, b.order)
	b.mu.RUnlock()

	standings := make([]ClientStanding, 0, len(ids))
	for _, id := range ids {
		total, err := b.TotalBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		client, _ := b.client(id)
		standings = append(standings, ClientStanding{
			ClientID:     id,
			FullName:     client.FullName(),
			TotalBalance: total,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].TotalBalance.GreaterThan(standings[j].TotalBalance)
	})

	if n > 0 && n < len(standings) {
		standings = standings[:n]
	}
	return standings, nil
}

type interestBearing interface {
	ApplyMonthlyInterest() error
}

// ApplyMonthlyInterest credits monthly interest on every active account
// that accrues it and reports how many were credited.
func (b *Bank) ApplyMonthlyInterest(ctx context.Context) (int, error) {
	active, err := b.accounts.GetAllActive(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, account := range active {
		savings, ok := account.(interestBearing)
		if !ok {
			continue
		}
		if err := savings.ApplyMonthlyInterest(); err != nil {
			b.logger.WarnContext(ctx, "Interest accrual skipped",
				slog.String("account_id", account.ID()),
				slog.String("error", err.Error()))
			continue
		}
		applied++
	}

	b.logger.InfoContext(ctx, "Monthly interest applied", slog.Int("accounts", applied))
	return applied, nil
}

func (b *Bank) client(clientID string) (*Client, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clients[clientID]
	return c, ok
}

func (b *Bank) requireAdmin(actor string) error {
	if actor != adminActor {
		return fmt.Errorf("%w: actor %q is not allowed", domain.ErrInvalidOperation, actor)
	}
	return nil
}

func age(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	if now.YearDay() < birthDate.YearDay() {
		years--
	}
	return years
}
