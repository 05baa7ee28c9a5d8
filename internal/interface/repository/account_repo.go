package repository

import (
	"context"
	"errors"
	"fmt"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccountRepository implements the AccountRepository interface
type MongoAccountRepository struct {
	collection *mongo.Collection
}

// NewMongoAccountRepository creates a new MongoDB account repository
func NewMongoAccountRepository(db *mongo.Database) repository.AccountRepository {
	collection := db.Collection("accounts")

	// Multikey index so sender lookup does not scan every account
	linkedEmailsIndex := mongo.IndexModel{
		Keys: bson.M{"linkedEmails": 1},
	}
	collection.Indexes().CreateOne(context.Background(), linkedEmailsIndex)

	return &MongoAccountRepository{
		collection: collection,
	}
}

// FindByLinkedEmail finds the account whose linkedEmails contains email
func (r *MongoAccountRepository) FindByLinkedEmail(ctx context.Context, email string) (*entity.Account, error) {
	var account entity.Account
	err := r.collection.FindOne(ctx, bson.M{"linkedEmails": entity.NormalizeEmail(email)}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID finds an account by ID
func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	var account entity.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert stores the account with its linked emails normalized
func (r *MongoAccountRepository) Upsert(ctx context.Context, account *entity.Account) error {
	stored := *account
	stored.LinkedEmails = account.NormalizedLinkedEmails()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": account.ID}, &stored, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", account.ID, err)
	}
	return nil
}
