package snapshot

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"folio/models"
	"folio/services/schema"
	"folio/utils/docpath"

	"cloud.google.com/go/storage"
)

//go:embed data/portfolio.json
var embeddedPortfolio []byte

// Source yields the immutable, read-only snapshot records.
type Source interface {
	Fetch(ctx context.Context) ([]models.Document, error)
}

func decode(raw []byte) ([]models.Document, error) {
	var docs []models.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return docs, nil
}

// EmbeddedSource serves the snapshot bundled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Fetch(ctx context.Context) ([]models.Document, error) {
	return decode(embeddedPortfolio)
}

// FileSource reads the snapshot from a JSON file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]models.Document, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.Path, err)
	}
	return decode(raw)
}

// BucketSource reads the snapshot object from a Cloud Storage bucket.
type BucketSource struct {
	Client *storage.Client
	Bucket string
	Object string
}

func (s BucketSource) Fetch(ctx context.Context) ([]models.Document, error) {
	r, err := s.Client.Bucket(s.Bucket).Object(s.Object).NewReader(ctx)
	if err != nil {
		return nil, models.NewStoreError("open snapshot object", models.ErrUnavailable, err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, models.NewStoreError("read snapshot object", models.ErrUnavailable, err)
	}
	return decode(raw)
}

// Cached fetches from the underlying source once and then serves copies of
// that result. A failed fetch is not cached.
type Cached struct {
	src Source

	mu     sync.Mutex
	docs   []models.Document
	loaded bool
}

func NewCached(src Source) *Cached {
	return &Cached{src: src}
}

func (c *Cached) Fetch(ctx context.Context) ([]models.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		docs, err := c.src.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.docs = docs
		c.loaded = true
	}

	out := make([]models.Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = docpath.CloneMap(d)
	}
	return out, nil
}

// ItemIDs is the id generator used whenever snapshot records are normalized,
// so list items keep the same ids when served and when migrated.
func ItemIDs(t models.SectionType) schema.IDGenerator {
	return schema.StableIDs("snapshot/" + string(t))
}
