package sections

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	sectionRepo "folio/database/repository/section"
	"folio/models"
	"folio/services/schema"
	"folio/services/snapshot"

	"go.uber.org/zap"
)

const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
)

// MigrationMarkers reports whether the snapshot was already imported for a user.
type MigrationMarkers interface {
	Get(ctx context.Context, userID string) (*models.MigrationRecord, error)
}

// LoadResult is what LoadAll serves. Err carries the live-store failure when
// Degraded is set.
type LoadResult struct {
	Sections []models.Section `json:"sections"`
	Source   string           `json:"source"`
	ReadOnly bool             `json:"readOnly"`
	Degraded bool             `json:"degraded"`
	Err      error            `json:"-"`
}

// Store unifies the live section collection with the read-only snapshot.
// Everything it returns has been through the normalizer.
type Store struct {
	repo       sectionRepo.SectionRepository
	normalizer *schema.Normalizer
	snapshot   snapshot.Source
	markers    MigrationMarkers
	feed       ChangeFeed
	sessions   SessionTracker
	logger     *zap.Logger
	now        func() time.Time

	subMu sync.Mutex
	subs  map[string]*subscription
}

type Option func(*Store)

func WithFeed(f ChangeFeed) Option {
	return func(s *Store) { s.feed = f }
}

func WithSessions(t SessionTracker) Option {
	return func(s *Store) { s.sessions = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithMigrationMarkers(m MigrationMarkers) Option {
	return func(s *Store) { s.markers = m }
}

func NewStore(repo sectionRepo.SectionRepository, normalizer *schema.Normalizer, snap snapshot.Source, opts ...Option) *Store {
	s := &Store{
		repo:       repo,
		normalizer: normalizer,
		snapshot:   snap,
		feed:       NewMemoryFeed(),
		sessions:   NewMemorySessions(0),
		logger:     zap.NewNop(),
		now:        time.Now,
		subs:       make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalizer exposes the normalizer the store canonicalizes with.
func (s *Store) Normalizer() *schema.Normalizer {
	return s.normalizer
}

// LoadAll returns the user's sections sorted by order, falling back to the
// snapshot while the user has no live data yet or the live store is down.
func (s *Store) LoadAll(ctx context.Context, id models.Identity) (LoadResult, error) {
	docs, err := s.repo.ListByUser(ctx, id.UserID)
	if err != nil {
		if s.seenLive(ctx, id.UserID) {
			return LoadResult{}, err
		}
		snap, serr := s.snapshotSections(ctx, id.UserID)
		if serr != nil {
			s.logger.Error("live store and snapshot both failed",
				zap.String("userId", id.UserID), zap.Error(err), zap.NamedError("snapshotError", serr))
			return LoadResult{}, err
		}
		s.logger.Warn("live store unavailable; serving snapshot",
			zap.String("userId", id.UserID), zap.Error(err))
		return LoadResult{Sections: snap, Source: SourceSnapshot, ReadOnly: true, Degraded: true, Err: err}, nil
	}

	if len(docs) > 0 {
		if merr := s.sessions.MarkLive(ctx, id.UserID); merr != nil {
			s.logger.Warn("failed to mark live session", zap.String("userId", id.UserID), zap.Error(merr))
		}
		return LoadResult{Sections: s.normalizeAll(docs), Source: SourceLive}, nil
	}

	if s.seenLive(ctx, id.UserID) || (id.Authenticated && s.migrated(ctx, id.UserID)) {
		return LoadResult{Sections: []models.Section{}, Source: SourceLive}, nil
	}

	snap, err := s.snapshotSections(ctx, id.UserID)
	if err != nil {
		return LoadResult{}, err
	}
	return LoadResult{Sections: snap, Source: SourceSnapshot, ReadOnly: true}, nil
}

// Get returns one section. It falls back to the snapshot under the same
// conditions as LoadAll: a live-store outage, or a user with no live sections
// who is anonymous or not yet migrated.
func (s *Store) Get(ctx context.Context, id models.Identity, t models.SectionType) (models.Section, error) {
	if err := s.normalizer.Registry().Check(t); err != nil {
		return models.Section{}, err
	}
	doc, err := s.repo.GetByType(ctx, id.UserID, t)
	if err == nil {
		return s.normalizer.NormalizeSection(doc, t), nil
	}
	if s.seenLive(ctx, id.UserID) {
		return models.Section{}, err
	}
	if !isUnavailable(err) && !s.snapshotServed(ctx, id, err) {
		return models.Section{}, err
	}

	snap, serr := s.snapshotSections(ctx, id.UserID)
	if serr != nil {
		return models.Section{}, err
	}
	for _, sec := range snap {
		if sec.Type == t {
			return sec, nil
		}
	}
	return models.Section{}, models.NewStoreError("get section "+string(t), models.ErrNotFound, nil)
}

// snapshotServed reports whether a NotFound from the live store means the user
// is still on the snapshot.
func (s *Store) snapshotServed(ctx context.Context, id models.Identity, err error) bool {
	if !errors.Is(err, models.ErrNotFound) {
		return false
	}
	docs, lerr := s.repo.ListByUser(ctx, id.UserID)
	if lerr != nil || len(docs) > 0 {
		return false
	}
	return !(id.Authenticated && s.migrated(ctx, id.UserID))
}

func (s *Store) normalizeAll(docs []models.Document) []models.Section {
	out := make([]models.Section, 0, len(docs))
	for _, doc := range docs {
		t := models.SectionType(stringOf(doc["type"]))
		if !t.Valid() {
			s.logger.Warn("skipping section of unknown type", zap.String("type", string(t)))
			continue
		}
		out = append(out, s.normalizer.NormalizeSection(doc, t))
	}
	sortSections(out)
	return out
}

// snapshotSections normalizes the snapshot records as sections owned by userID.
func (s *Store) snapshotSections(ctx context.Context, userID string) ([]models.Section, error) {
	docs, err := s.snapshot.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Section, 0, len(docs))
	for _, doc := range docs {
		t := models.SectionType(stringOf(doc["type"]))
		if !t.Valid() {
			continue
		}
		doc["userId"] = userID
		canonical := s.normalizer.NormalizeWith(doc, t, snapshot.ItemIDs(t))
		out = append(out, models.SectionFromDocument(canonical))
	}
	sortSections(out)
	return out, nil
}

func (s *Store) seenLive(ctx context.Context, userID string) bool {
	seen, err := s.sessions.SeenLive(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to read live session mark", zap.String("userId", userID), zap.Error(err))
		return false
	}
	return seen
}

func (s *Store) migrated(ctx context.Context, userID string) bool {
	if s.markers == nil {
		return false
	}
	rec, err := s.markers.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to read migration marker", zap.String("userId", userID), zap.Error(err))
		return false
	}
	return rec != nil && rec.Migrated
}

func sortSections(list []models.Section) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].Type < list[j].Type
	})
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}
