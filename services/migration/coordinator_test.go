package migration

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	migrationRepo "folio/database/repository/migration"
	sectionRepo "folio/database/repository/section"
	"folio/models"
	"folio/services/schema"
	"folio/services/sections"
	"folio/services/snapshot"
)

var owner = models.Identity{UserID: "u1", Authenticated: true}

// failingRepo fails Replace for one section type.
type failingRepo struct {
	*sectionRepo.MemorySectionRepo
	failType models.SectionType
}

func (r *failingRepo) Replace(ctx context.Context, doc models.Document) error {
	if doc["type"] == string(r.failType) {
		return models.NewStoreError("replace section", models.ErrPermissionDenied, nil)
	}
	return r.MemorySectionRepo.Replace(ctx, doc)
}

func newCoordinator(repo sectionRepo.SectionRepository) (*Coordinator, *migrationRepo.MemoryMigrationRepo) {
	markers := migrationRepo.NewMemoryMigrationRepo()
	c := NewCoordinator(repo, markers, schema.NewNormalizer(), snapshot.NewCached(snapshot.EmbeddedSource{}), nil)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return c, markers
}

func liveContent(t *testing.T, repo sectionRepo.SectionRepository) []models.Document {
	t.Helper()
	docs, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	return docs
}

func TestMigrateTwiceIsIdentical(t *testing.T) {
	repo := sectionRepo.NewMemorySectionRepo()
	c, markers := newCoordinator(repo)
	ctx := context.Background()

	results, err := c.Migrate(ctx, owner, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Status != models.MigrationMigrated {
			t.Fatalf("unexpected result %+v", r)
		}
	}
	first := liveContent(t, repo)
	if len(first) != len(models.SectionTypes) {
		t.Fatalf("expected %d sections, got %d", len(models.SectionTypes), len(first))
	}

	if _, err := c.Migrate(ctx, owner, Options{OverwriteExisting: true}); err != nil {
		t.Fatal(err)
	}
	second := liveContent(t, repo)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-running migration changed content\nfirst:  %v\nsecond: %v", first, second)
	}

	rec, _ := markers.Get(ctx, "u1")
	if rec == nil || !rec.Migrated {
		t.Fatalf("migration marker not set: %+v", rec)
	}
}

func TestMigrateSkipsExistingSections(t *testing.T) {
	repo := sectionRepo.NewMemorySectionRepo()
	ctx := context.Background()
	_ = repo.Replace(ctx, models.Document{"userId": "u1", "type": "intro", "title": "Mine", "order": 0})
	c, _ := newCoordinator(repo)

	results, err := c.Migrate(ctx, owner, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		want := models.MigrationMigrated
		if r.Type == models.SectionIntro {
			want = models.MigrationSkippedExists
		}
		if r.Status != want {
			t.Fatalf("%s: got %s want %s", r.Type, r.Status, want)
		}
	}
	intro, _ := repo.GetByType(ctx, "u1", models.SectionIntro)
	if intro["title"] != "Mine" {
		t.Fatal("existing section was overwritten")
	}
}

func TestMigrateContinuesPastFailures(t *testing.T) {
	repo := &failingRepo{MemorySectionRepo: sectionRepo.NewMemorySectionRepo(), failType: models.SectionProjects}
	c, markers := newCoordinator(repo)
	ctx := context.Background()

	results, err := c.Migrate(ctx, owner, Options{})
	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	migrated := 0
	for _, r := range results {
		switch r.Status {
		case models.MigrationMigrated:
			migrated++
		case models.MigrationFailed:
			if r.Type != models.SectionProjects || r.Error == "" {
				t.Fatalf("unexpected failure %+v", r)
			}
		}
	}
	if migrated != len(models.SectionTypes)-1 {
		t.Fatalf("expected the other types to migrate, got %d", migrated)
	}
	if rec, _ := markers.Get(ctx, "u1"); rec == nil || rec.Migrated {
		t.Fatalf("marker must not claim success: %+v", rec)
	}
}

func TestMigrateNormalizesLegacyShapes(t *testing.T) {
	repo := sectionRepo.NewMemorySectionRepo()
	c, _ := newCoordinator(repo)
	ctx := context.Background()
	if _, err := c.Migrate(ctx, owner, Options{}); err != nil {
		t.Fatal(err)
	}

	exp, _ := repo.GetByType(ctx, "u1", models.SectionExperience)
	if _, ok := exp["experience"]; ok {
		t.Fatal("legacy experience key survived migration")
	}
	items := exp["data"].(map[string]interface{})["experiences"].([]interface{})
	for _, it := range items {
		if id, _ := it.(map[string]interface{})["id"].(string); id == "" {
			t.Fatalf("item without id: %v", it)
		}
	}
}

func TestMigrateRequiresAuthentication(t *testing.T) {
	c, _ := newCoordinator(sectionRepo.NewMemorySectionRepo())
	if _, err := c.Migrate(context.Background(), models.Anonymous("u1"), Options{}); !errors.Is(err, models.ErrReadOnly) {
		t.Fatalf("expected read-only, got %v", err)
	}
}

func TestMigrateNotifiesSubscribers(t *testing.T) {
	repo := sectionRepo.NewMemorySectionRepo()
	normalizer := schema.NewNormalizer()
	snap := snapshot.NewCached(snapshot.EmbeddedSource{})
	store := sections.NewStore(repo, normalizer, snap)
	c := NewCoordinator(repo, migrationRepo.NewMemoryMigrationRepo(), normalizer, snap, nil, WithNotifier(store))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pushes := make(chan []models.Section, 4)
	unsubscribe, err := store.Subscribe(ctx, owner, func(list []models.Section, _ time.Time) { pushes <- list })
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	if _, err := c.Migrate(ctx, owner, Options{}); err != nil {
		t.Fatal(err)
	}
	select {
	case list := <-pushes:
		if len(list) != len(liveContent(t, repo)) || len(list) == 0 {
			t.Fatalf("push does not match the live store: %d sections", len(list))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no push after migration")
	}
}

type countingNotifier struct{ calls int }

func (n *countingNotifier) Notify(ctx context.Context, userID string) { n.calls++ }

func TestMigrateWithoutWritesDoesNotNotify(t *testing.T) {
	repo := sectionRepo.NewMemorySectionRepo()
	notifier := &countingNotifier{}
	c := NewCoordinator(repo, migrationRepo.NewMemoryMigrationRepo(), schema.NewNormalizer(),
		snapshot.NewCached(snapshot.EmbeddedSource{}), nil, WithNotifier(notifier))
	ctx := context.Background()

	if _, err := c.Migrate(ctx, owner, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Migrate(ctx, owner, Options{}); err != nil {
		t.Fatal(err)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}
}
