package repository

import (
	"context"

	"tripmail-service/internal/domain/entity"
)

// AccountRepository defines the interface for account storage
type AccountRepository interface {
	// FindByLinkedEmail returns the account whose linked-address set contains
	// the normalized address, or ErrNotFound
	FindByLinkedEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	// Upsert inserts or replaces the account with its linked emails
	// normalized
	Upsert(ctx context.Context, account *entity.Account) error
}
