package sectionRepo

import (
	"context"
	"fmt"

	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApplyLayout writes every patch inside one multi-document transaction. A
// patch that matches no section aborts the whole batch.
func (r *MongoSectionRepo) ApplyLayout(ctx context.Context, userID string, patches []models.LayoutPatch, lastUpdated string) error {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return classify("start layout session", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		for _, p := range patches {
			update := bson.M{"$set": bson.M{
				"order":       p.Order,
				"visible":     p.Visible,
				"lastUpdated": lastUpdated,
			}}
			res, err := r.coll.UpdateOne(sc, filterFor(userID, p.Type), update)
			if err != nil {
				return classify("write layout "+string(p.Type), err)
			}
			if res.MatchedCount == 0 {
				return models.NewStoreError("write layout "+string(p.Type), models.ErrNotFound, nil)
			}
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("layout transaction failed: %w", classify("commit layout", err))
	}
	return nil
}
