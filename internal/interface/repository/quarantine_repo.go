package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// claimTTL is how long a replay claim blocks other operators. A claim older
// than this is treated as abandoned by a crashed replay.
const claimTTL = 15 * time.Minute

const defaultListLimit = 100

// MongoQuarantineRepository implements the QuarantineRepository interface
type MongoQuarantineRepository struct {
	collection *mongo.Collection
}

// NewMongoQuarantineRepository creates a new MongoDB quarantine repository
func NewMongoQuarantineRepository(db *mongo.Database) repository.QuarantineRepository {
	collection := db.Collection("quarantine")

	receivedAtIndex := mongo.IndexModel{
		Keys: bson.M{"receivedAt": -1},
	}

	// Review queue: pending entries newest first
	statusIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "receivedAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		receivedAtIndex,
		statusIndex,
	})

	return &MongoQuarantineRepository{
		collection: collection,
	}
}

// Save inserts a new quarantine entry
func (r *MongoQuarantineRepository) Save(ctx context.Context, entry *entity.QuarantineEntry) error {
	if entry.Status == "" {
		entry.Status = entity.QuarantinePending
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// FindByID finds an entry by ID
func (r *MongoQuarantineRepository) FindByID(ctx context.Context, id string) (*entity.QuarantineEntry, error) {
	var entry entity.QuarantineEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List finds entries matching the filter, newest first
func (r *MongoQuarantineRepository) List(ctx context.Context, filter entity.QuarantineFilter) ([]*entity.QuarantineEntry, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AccountID != "" {
		query["accountId"] = filter.AccountID
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = defaultListLimit
	}

	cursor, err := r.collection.Find(ctx, query, &options.FindOptions{
		Limit: &limit,
		Sort:  bson.D{{Key: "receivedAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*entity.QuarantineEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Claim marks a PENDING entry as being replayed by operator
func (r *MongoQuarantineRepository) Claim(ctx context.Context, id, operator string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": entity.QuarantinePending,
			"$or": []bson.M{
				{"claimedBy": bson.M{"$exists": false}},
				{"claimedBy": ""},
				{"claimedAt": bson.M{"$lt": at.Add(-claimTTL)}},
			},
		},
		bson.M{"$set": bson.M{
			"claimedBy": operator,
			"claimedAt": at,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to claim quarantine entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.unavailable(ctx, id)
	}
	return nil
}

// Release drops operator's claim on a still-PENDING entry
func (r *MongoQuarantineRepository) Release(ctx context.Context, id, operator string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":       id,
			"status":    entity.QuarantinePending,
			"claimedBy": operator,
		},
		bson.M{"$unset": bson.M{
			"claimedBy": "",
			"claimedAt": "",
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to release quarantine entry: %w", err)
	}
	return nil
}

// MarkForced moves operator's claimed entry to FORCED_IMPORT
func (r *MongoQuarantineRepository) MarkForced(ctx context.Context, id, tripID, operator string, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":       id,
			"status":    entity.QuarantinePending,
			"claimedBy": operator,
		},
		bson.M{
			"$set": bson.M{
				"status":   entity.QuarantineForcedImport,
				"tripId":   tripID,
				"forcedAt": at,
				"forcedBy": operator,
			},
			"$unset": bson.M{
				"claimedBy": "",
				"claimedAt": "",
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark quarantine entry forced: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.unavailable(ctx, id)
	}
	return nil
}

// unavailable explains why a conditional update on id matched nothing
func (r *MongoQuarantineRepository) unavailable(ctx context.Context, id string) error {
	entry, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status == entity.QuarantineForcedImport {
		return repository.ErrAlreadyForced
	}
	return repository.ErrReplayInProgress
}
