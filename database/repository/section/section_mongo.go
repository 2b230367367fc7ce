package sectionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSectionRepo implements SectionRepository using MongoDB. All users share
// one collection; every query is scoped by userId.
type MongoSectionRepo struct {
	coll *mongo.Collection
}

// NewMongoSectionRepo creates the repository over db.sections and ensures its indexes.
func NewMongoSectionRepo(db *mongo.Database) (*MongoSectionRepo, error) {
	repo := &MongoSectionRepo{coll: db.Collection("sections")}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// withTimeout bounds a single store round trip.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func filterFor(userID string, t models.SectionType) bson.M {
	return bson.M{"userId": userID, "type": string(t)}
}

// classify maps driver errors onto the section error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var serverErr mongo.ServerError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.NewStoreError(op, models.ErrNotFound, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, mongo.ErrClientDisconnected):
		return models.NewStoreError(op, models.ErrUnavailable, err)
	case errors.As(err, &serverErr) && (serverErr.HasErrorCode(13) || serverErr.HasErrorCode(8000)):
		// 13 Unauthorized, 8000 AtlasError (user lacks privileges)
		return models.NewStoreError(op, models.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// fromBSON converts decoded driver values into plain documents.
func fromBSON(v interface{}) interface{} {
	switch n := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = fromBSON(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = fromBSON(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(n))
		for _, e := range n {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(n))
		for i, val := range n {
			out[i] = fromBSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, val := range n {
			out[i] = fromBSON(val)
		}
		return out
	case int32:
		return int(n)
	case int64:
		return int(n)
	case primitive.DateTime:
		return models.Timestamp(n.Time())
	case primitive.ObjectID:
		return n.Hex()
	default:
		return v
	}
}

func decodeDocument(raw bson.M) models.Document {
	doc := fromBSON(raw).(map[string]interface{})
	delete(doc, "_id")
	return doc
}
