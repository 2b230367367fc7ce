package migrationRepo

import (
	"context"

	"folio/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreMigrationRepo keeps the marker at users/{uid}/meta/migration.
type FirestoreMigrationRepo struct {
	client *firestore.Client
}

func NewFirestoreMigrationRepo(client *firestore.Client) *FirestoreMigrationRepo {
	return &FirestoreMigrationRepo{client: client}
}

func (r *FirestoreMigrationRepo) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection("users").Doc(userID).Collection("meta").Doc("migration")
}

func (r *FirestoreMigrationRepo) Get(ctx context.Context, userID string) (*models.MigrationRecord, error) {
	snap, err := r.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("get migration record", models.ErrUnavailable, err)
	}
	var rec models.MigrationRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, models.NewStoreError("decode migration record", models.ErrValidation, err)
	}
	return &rec, nil
}

func (r *FirestoreMigrationRepo) Save(ctx context.Context, rec models.MigrationRecord) error {
	if _, err := r.doc(rec.UserID).Set(ctx, rec); err != nil {
		return models.NewStoreError("save migration record", models.ErrUnavailable, err)
	}
	return nil
}
