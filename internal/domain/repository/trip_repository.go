package repository

import (
	"context"

	"tripmail-service/internal/domain/entity"
)

// TripRepository defines the interface for trip storage operations
type TripRepository interface {
	// FindByID returns the trip with its current version, or ErrNotFound
	FindByID(ctx context.Context, accountID, tripID string) (*entity.Trip, error)

	// Save writes the trip if the stored version still equals expectedVersion
	// (0 means the trip must not exist yet). On success trip.Version is the new
	// version. A lost race returns ErrVersionConflict.
	Save(ctx context.Context, trip *entity.Trip, expectedVersion int64) error
}
