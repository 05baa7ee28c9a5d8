package usecase

import (
	"context"
	"errors"
	"fmt"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/utils"
)

// ErrSenderNotFound is returned when no account links the sender address
var ErrSenderNotFound = errors.New("unknown sender")

// SenderResolver maps an inbound From header to the owning account
type SenderResolver struct {
	accountRepo repository.AccountRepository
}

// NewSenderResolver creates a new sender resolver
func NewSenderResolver(accountRepo repository.AccountRepository) *SenderResolver {
	return &SenderResolver{accountRepo: accountRepo}
}

// Resolve looks up the account whose linked addresses contain from.
// Display names and case are ignored.
func (r *SenderResolver) Resolve(ctx context.Context, from string) (*entity.Account, error) {
	address := utils.ParseAddress(from)
	if address == "" {
		return nil, ErrSenderNotFound
	}

	account, err := r.accountRepo.FindByLinkedEmail(ctx, address)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSenderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sender %s: %w", address, err)
	}
	return account, nil
}
