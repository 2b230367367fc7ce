package sectionRepo

import (
	"context"

	"folio/models"
)

// SectionRepository is the live, per-user section collection. Implementations
// return raw documents; callers are expected to normalize them. Failures are
// reported as *models.StoreError classified against the models sentinels.
type SectionRepository interface {
	// ListByUser returns every section document owned by userID, in no particular order.
	ListByUser(ctx context.Context, userID string) ([]models.Document, error)
	// GetByType returns the user's section of type t, or models.ErrNotFound.
	GetByType(ctx context.Context, userID string, t models.SectionType) (models.Document, error)
	// CreateIfAbsent inserts doc unless a section of the same (userId, type) exists.
	CreateIfAbsent(ctx context.Context, doc models.Document) error
	// Replace writes doc over any existing section of the same (userId, type).
	Replace(ctx context.Context, doc models.Document) error
	// SetField merges value at a dot path of an existing section.
	SetField(ctx context.Context, userID string, t models.SectionType, path string, value interface{}, lastUpdated string) error
	// ApplyLayout writes order and visibility for every patch, all or nothing.
	ApplyLayout(ctx context.Context, userID string, patches []models.LayoutPatch, lastUpdated string) error
}

func docKey(doc models.Document) (string, models.SectionType) {
	userID, _ := doc["userId"].(string)
	t, _ := doc["type"].(string)
	return userID, models.SectionType(t)
}
