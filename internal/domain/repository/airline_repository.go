package repository

import (
	"context"

	"tripmail-service/internal/domain/entity"
)

// AirlineRepository defines the interface for airline operations
type AirlineRepository interface {
	// ListAll returns every airline in table order
	ListAll(ctx context.Context) ([]*entity.Airline, error)
}
