package sectionRepo

import (
	"context"
	"time"

	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListByUser returns all of a user's section documents.
func (r *MongoSectionRepo) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, classify("list sections", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, classify("decode section", err)
		}
		docs = append(docs, decodeDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("list sections", err)
	}
	return docs, nil
}

// GetByType returns one section document.
func (r *MongoSectionRepo) GetByType(ctx context.Context, userID string, t models.SectionType) (models.Document, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	var raw bson.M
	if err := r.coll.FindOne(ctx, filterFor(userID, t)).Decode(&raw); err != nil {
		return nil, classify("get section "+string(t), err)
	}
	return decodeDocument(raw), nil
}

// CreateIfAbsent upserts with $setOnInsert so concurrent creators converge on one document.
func (r *MongoSectionRepo) CreateIfAbsent(ctx context.Context, doc models.Document) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	userID, t := docKey(doc)
	_, err := r.coll.UpdateOne(ctx, filterFor(userID, t),
		bson.M{"$setOnInsert": bson.M(doc)},
		options.Update().SetUpsert(true))
	return classify("create section "+string(t), err)
}

// Replace overwrites (or inserts) the whole section document.
func (r *MongoSectionRepo) Replace(ctx context.Context, doc models.Document) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	userID, t := docKey(doc)
	_, err := r.coll.ReplaceOne(ctx, filterFor(userID, t), bson.M(doc), options.Replace().SetUpsert(true))
	return classify("replace section "+string(t), err)
}

// SetField applies a single $set at a dot path; list indexes are addressed numerically.
func (r *MongoSectionRepo) SetField(ctx context.Context, userID string, t models.SectionType, path string, value interface{}, lastUpdated string) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{path: value, "lastUpdated": lastUpdated}}
	res, err := r.coll.UpdateOne(ctx, filterFor(userID, t), update)
	if err != nil {
		return classify("set section field "+path, err)
	}
	if res.MatchedCount == 0 {
		return models.NewStoreError("set section field "+path, models.ErrNotFound, nil)
	}
	return nil
}
