package sectionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"folio/models"
	"folio/utils/docpath"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreSectionRepo stores sections under users/{uid}/sections/{type}.
// It also serves as a change feed since Firestore pushes snapshots natively.
type FirestoreSectionRepo struct {
	client *firestore.Client
}

func NewFirestoreSectionRepo(client *firestore.Client) *FirestoreSectionRepo {
	return &FirestoreSectionRepo{client: client}
}

func (r *FirestoreSectionRepo) sections(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("sections")
}

func classifyStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return models.NewStoreError(op, models.ErrNotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return models.NewStoreError(op, models.ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return models.NewStoreError(op, models.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewStoreError(op, models.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fromFirestore converts snapshot data into plain documents.
func fromFirestore(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, val := range n {
			out[k] = fromFirestore(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, val := range n {
			out[i] = fromFirestore(val)
		}
		return out
	case int64:
		return int(n)
	case time.Time:
		return models.Timestamp(n)
	default:
		return v
	}
}

func snapshotDocument(snap *firestore.DocumentSnapshot) models.Document {
	return fromFirestore(snap.Data()).(map[string]interface{})
}

func (r *FirestoreSectionRepo) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	snaps, err := r.sections(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, classifyStatus("list sections", err)
	}
	docs := make([]models.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapshotDocument(snap))
	}
	return docs, nil
}

func (r *FirestoreSectionRepo) GetByType(ctx context.Context, userID string, t models.SectionType) (models.Document, error) {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := r.sections(userID).Doc(string(t)).Get(ctx)
	if err != nil {
		return nil, classifyStatus("get section "+string(t), err)
	}
	return snapshotDocument(snap), nil
}

func (r *FirestoreSectionRepo) CreateIfAbsent(ctx context.Context, doc models.Document) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	userID, t := docKey(doc)
	_, err := r.sections(userID).Doc(string(t)).Create(ctx, map[string]interface{}(doc))
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	return classifyStatus("create section "+string(t), err)
}

func (r *FirestoreSectionRepo) Replace(ctx context.Context, doc models.Document) error {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	userID, t := docKey(doc)
	_, err := r.sections(userID).Doc(string(t)).Set(ctx, map[string]interface{}(doc))
	return classifyStatus("replace section "+string(t), err)
}

// SetField reads, patches and rewrites the document in one transaction so list
// indexes in path resolve against the current value.
func (r *FirestoreSectionRepo) SetField(ctx context.Context, userID string, t models.SectionType, path string, value interface{}, lastUpdated string) error {
	ref := r.sections(userID).Doc(string(t))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		next, err := docpath.Set(snapshotDocument(snap), path, value)
		if err != nil {
			return err
		}
		next["lastUpdated"] = lastUpdated
		return tx.Set(ref, next)
	})
	if errors.Is(err, models.ErrInvalidPath) {
		return err
	}
	return classifyStatus("set section field "+path, err)
}

// ApplyLayout reads every target first (Firestore requires reads before writes)
// and then updates them together.
func (r *FirestoreSectionRepo) ApplyLayout(ctx context.Context, userID string, patches []models.LayoutPatch, lastUpdated string) error {
	coll := r.sections(userID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make([]*firestore.DocumentRef, len(patches))
		for i, p := range patches {
			refs[i] = coll.Doc(string(p.Type))
			if _, err := tx.Get(refs[i]); err != nil {
				return err
			}
		}
		for i, p := range patches {
			err := tx.Update(refs[i], []firestore.Update{
				{Path: "order", Value: p.Order},
				{Path: "visible", Value: p.Visible},
				{Path: "lastUpdated", Value: lastUpdated},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return classifyStatus("write layout", err)
}

// Publish is a no-op: Firestore notifies listeners of committed writes itself.
func (r *FirestoreSectionRepo) Publish(ctx context.Context, userID string) error {
	return nil
}

// Watch emits a tick whenever the user's section collection changes. The
// channel closes when ctx is cancelled or the listener fails.
func (r *FirestoreSectionRepo) Watch(ctx context.Context, userID string) (<-chan time.Time, error) {
	it := r.sections(userID).Snapshots(ctx)
	out := make(chan time.Time, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				return
			}
			select {
			case out <- snap.ReadTime:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
