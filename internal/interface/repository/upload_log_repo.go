package repository

import (
	"context"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUploadLogRepository implements the UploadLogRepository interface.
// Entries are only ever inserted.
type MongoUploadLogRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadLogRepository creates a new MongoDB upload log repository
func NewMongoUploadLogRepository(db *mongo.Database) repository.UploadLogRepository {
	collection := db.Collection("upload_logs")

	// Gmail de-duplication
	sourceRefIndex := mongo.IndexModel{
		Keys: bson.M{"sourceRef": 1},
	}

	accountIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "accountId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	collection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		sourceRefIndex,
		accountIndex,
	})

	return &MongoUploadLogRepository{
		collection: collection,
	}
}

// Append inserts one log entry
func (r *MongoUploadLogRepository) Append(ctx context.Context, log *entity.UploadLog) error {
	_, err := r.collection.InsertOne(ctx, log)
	return err
}

// ExistsBySourceRef reports whether a settled attempt was logged for
// sourceRef. Attempts that ended in a store failure do not count.
func (r *MongoUploadLogRepository) ExistsBySourceRef(ctx context.Context, sourceRef string) (bool, error) {
	filter := bson.M{
		"sourceRef": sourceRef,
		"$or": bson.A{
			bson.M{"success": true},
			bson.M{"state": bson.M{"$ne": entity.UploadStateFailedPersistence}},
		},
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByAccount returns an account's most recent log entries
func (r *MongoUploadLogRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entity.UploadLog, error) {
	limit64 := int64(limit)
	if limit64 <= 0 {
		limit64 = defaultListLimit
	}

	filter := bson.M{}
	if accountID != "" {
		filter["accountId"] = accountID
	}

	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*entity.UploadLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
