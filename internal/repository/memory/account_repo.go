package memory

import (
	"context"
	"fmt"
	"sync"

	"banking_engine/internal/domain"
	"banking_engine/internal/repository"
)

type AccountRepository struct {
	mu         sync.RWMutex
	accounts   map[string]domain.Account
	ownerIndex map[string][]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:   make(map[string]domain.Account),
		ownerIndex: make(map[string][]string),
	}
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: account %s", repository.ErrDuplicate, account.ID())
	}

	r.accounts[account.ID()] = account
	r.ownerIndex[account.Owner()] = append(r.ownerIndex[account.Owner()], account.ID())

	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: account %s", repository.ErrNotFound, id)
	}
	return account, nil
}

func (r *AccountRepository) GetByOwner(ctx context.Context, owner string) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accountIDs, exists := r.ownerIndex[owner]
	if !exists {
		return nil, fmt.Errorf("%w: owner %s", repository.ErrNotFound, owner)
	}

	var result []domain.Account
	for _, id := range accountIDs {
		if account, exists := r.accounts[id]; exists {
			result = append(result, account)
		}
	}

	return result, nil
}

func (r *AccountRepository) GetAllActive(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Account
	for _, account := range r.accounts {
		if account.Status() == domain.AccountActive {
			result = append(result, account)
		}
	}

	return result, nil
}
