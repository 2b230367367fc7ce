package sectionRepo

import (
	"context"
	"sort"
	"sync"

	"folio/models"
	"folio/utils/docpath"
)

// MemorySectionRepo keeps sections in process. Used for local development and tests.
type MemorySectionRepo struct {
	mu   sync.RWMutex
	docs map[string]map[models.SectionType]models.Document
}

func NewMemorySectionRepo() *MemorySectionRepo {
	return &MemorySectionRepo{docs: make(map[string]map[models.SectionType]models.Document)}
}

func (r *MemorySectionRepo) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreError("list sections", models.ErrUnavailable, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Document, 0, len(r.docs[userID]))
	for _, doc := range r.docs[userID] {
		out = append(out, docpath.CloneMap(doc))
	}
	sort.Slice(out, func(i, j int) bool {
		ti, _ := out[i]["type"].(string)
		tj, _ := out[j]["type"].(string)
		return ti < tj
	})
	return out, nil
}

func (r *MemorySectionRepo) GetByType(ctx context.Context, userID string, t models.SectionType) (models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[userID][t]
	if !ok {
		return nil, models.NewStoreError("get section "+string(t), models.ErrNotFound, nil)
	}
	return docpath.CloneMap(doc), nil
}

func (r *MemorySectionRepo) CreateIfAbsent(ctx context.Context, doc models.Document) error {
	userID, t := docKey(doc)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[userID][t]; ok {
		return nil
	}
	r.put(userID, t, doc)
	return nil
}

func (r *MemorySectionRepo) Replace(ctx context.Context, doc models.Document) error {
	userID, t := docKey(doc)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(userID, t, doc)
	return nil
}

func (r *MemorySectionRepo) SetField(ctx context.Context, userID string, t models.SectionType, path string, value interface{}, lastUpdated string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[userID][t]
	if !ok {
		return models.NewStoreError("set section field "+path, models.ErrNotFound, nil)
	}
	next, err := docpath.Set(doc, path, value)
	if err != nil {
		return err
	}
	next["lastUpdated"] = lastUpdated
	r.docs[userID][t] = next
	return nil
}

func (r *MemorySectionRepo) ApplyLayout(ctx context.Context, userID string, patches []models.LayoutPatch, lastUpdated string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range patches {
		if _, ok := r.docs[userID][p.Type]; !ok {
			return models.NewStoreError("write layout "+string(p.Type), models.ErrNotFound, nil)
		}
	}
	for _, p := range patches {
		doc := docpath.CloneMap(r.docs[userID][p.Type])
		doc["order"] = p.Order
		doc["visible"] = p.Visible
		doc["lastUpdated"] = lastUpdated
		r.docs[userID][p.Type] = doc
	}
	return nil
}

func (r *MemorySectionRepo) put(userID string, t models.SectionType, doc models.Document) {
	if r.docs[userID] == nil {
		r.docs[userID] = make(map[models.SectionType]models.Document)
	}
	r.docs[userID][t] = docpath.CloneMap(doc)
}
