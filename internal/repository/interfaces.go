package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// AccountRepository is the registry seam. The processor resolves instruments
// through it; it never constructs or deletes entries itself.
type AccountRepository interface {
	Save(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByOwner(ctx context.Context, owner string) ([]domain.Account, error)
	GetAllActive(ctx context.Context) ([]domain.Account, error)
}

// TransactionRepository keeps processed transactions for audit queries.
// Records are saved once, after reaching a terminal status; lifecycle
// changes happen on the transaction itself, never through the repository.
type TransactionRepository interface {
	Save(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
	GetByStatus(ctx context.Context, status domain.TransactionStatus) ([]*domain.Transaction, error)
	GetByPeriod(ctx context.Context, from, to time.Time) ([]*domain.Transaction, error)
	GetDailyVolume(ctx context.Context, accountID string, date time.Time) (decimal.Decimal, error)
}
