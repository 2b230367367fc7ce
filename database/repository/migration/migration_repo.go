package migrationRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MigrationRepository persists the per-user migration marker.
type MigrationRepository interface {
	// Get returns the user's record, or nil when the user was never migrated.
	Get(ctx context.Context, userID string) (*models.MigrationRecord, error)
	Save(ctx context.Context, rec models.MigrationRecord) error
}

type MongoMigrationRepo struct {
	coll *mongo.Collection
}

func NewMongoMigrationRepo(db *mongo.Database) (*MongoMigrationRepo, error) {
	repo := &MongoMigrationRepo{coll: db.Collection("migrations")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration indexes: %w", err)
	}
	return repo, nil
}

func (r *MongoMigrationRepo) Get(ctx context.Context, userID string) (*models.MigrationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec models.MigrationRecord
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("get migration record", models.ErrUnavailable, err)
	}
	return &rec, nil
}

func (r *MongoMigrationRepo) Save(ctx context.Context, rec models.MigrationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"userId": rec.UserID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return models.NewStoreError("save migration record", models.ErrUnavailable, err)
	}
	return nil
}

// MemoryMigrationRepo is the in-process variant.
type MemoryMigrationRepo struct {
	mu      sync.RWMutex
	records map[string]models.MigrationRecord
}

func NewMemoryMigrationRepo() *MemoryMigrationRepo {
	return &MemoryMigrationRepo{records: make(map[string]models.MigrationRecord)}
}

func (r *MemoryMigrationRepo) Get(ctx context.Context, userID string) (*models.MigrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	rec.Results = append([]models.MigrationResult(nil), rec.Results...)
	return &rec, nil
}

func (r *MemoryMigrationRepo) Save(ctx context.Context, rec models.MigrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Results = append([]models.MigrationResult(nil), rec.Results...)
	r.records[rec.UserID] = rec
	return nil
}
