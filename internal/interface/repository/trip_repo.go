package repository

import (
	"context"
	"errors"
	"fmt"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTripRepository implements the TripRepository interface. Trips of all
// accounts share one collection keyed by "{accountId}/{tripId}".
type MongoTripRepository struct {
	collection *mongo.Collection
}

// NewMongoTripRepository creates a new MongoDB trip repository
func NewMongoTripRepository(db *mongo.Database) repository.TripRepository {
	collection := db.Collection("trips")

	// Dashboard listing: an account's trips by start date
	accountStartIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "accountId", Value: 1},
			{Key: "startsAt", Value: -1},
		},
	}
	collection.Indexes().CreateOne(context.Background(), accountStartIndex)

	return &MongoTripRepository{
		collection: collection,
	}
}

// FindByID finds a trip of an account
func (r *MongoTripRepository) FindByID(ctx context.Context, accountID, tripID string) (*entity.Trip, error) {
	var trip entity.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": entity.TripDocID(accountID, tripID)}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// Save inserts a new trip (expectedVersion 0) or replaces the stored one
// only while its version is still expectedVersion
func (r *MongoTripRepository) Save(ctx context.Context, trip *entity.Trip, expectedVersion int64) error {
	if trip.DocID == "" {
		trip.DocID = entity.TripDocID(trip.AccountID, trip.ID)
	}
	trip.Version = expectedVersion + 1

	if expectedVersion == 0 {
		_, err := r.collection.InsertOne(ctx, trip)
		if mongo.IsDuplicateKeyError(err) {
			trip.Version = expectedVersion
			return repository.ErrVersionConflict
		}
		if err != nil {
			trip.Version = expectedVersion
			return fmt.Errorf("failed to insert trip: %w", err)
		}
		return nil
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{
		"_id":     trip.DocID,
		"version": expectedVersion,
	}, trip)
	if err != nil {
		trip.Version = expectedVersion
		return fmt.Errorf("failed to replace trip: %w", err)
	}
	if result.MatchedCount == 0 {
		trip.Version = expectedVersion
		return repository.ErrVersionConflict
	}
	return nil
}
