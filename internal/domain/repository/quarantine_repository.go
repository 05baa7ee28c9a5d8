package repository

import (
	"context"
	"time"

	"tripmail-service/internal/domain/entity"
)

// QuarantineRepository defines the interface for quarantine storage operations
type QuarantineRepository interface {
	Save(ctx context.Context, entry *entity.QuarantineEntry) error
	FindByID(ctx context.Context, id string) (*entity.QuarantineEntry, error)
	List(ctx context.Context, filter entity.QuarantineFilter) ([]*entity.QuarantineEntry, error)

	// Claim marks a PENDING entry as being replayed by operator. Returns
	// ErrAlreadyForced, ErrReplayInProgress or ErrNotFound.
	Claim(ctx context.Context, id, operator string, at time.Time) error
	Release(ctx context.Context, id, operator string) error

	// MarkForced moves a claimed entry to FORCED_IMPORT. It only ever succeeds once.
	MarkForced(ctx context.Context, id, tripID, operator string, at time.Time) error
}
