package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	migrationRepo "folio/database/repository/migration"
	sectionRepo "folio/database/repository/section"
	"folio/models"
	"folio/services/schema"
	"folio/services/snapshot"

	"go.uber.org/zap"
)

// Options controls one migration run.
type Options struct {
	OverwriteExisting bool `json:"overwriteExisting"`
}

// PartialFailureError reports a run in which some section types failed. The
// other types were still migrated.
type PartialFailureError struct {
	Results []models.MigrationResult
}

func (e *PartialFailureError) Error() string {
	var failed []string
	for _, r := range e.Results {
		if r.Status == models.MigrationFailed {
			failed = append(failed, fmt.Sprintf("%s (%s)", r.Type, r.Error))
		}
	}
	return "migration failed for " + strings.Join(failed, ", ")
}

// Notifier tells live subscribers that a user's sections changed.
type Notifier interface {
	Notify(ctx context.Context, userID string)
}

// Coordinator imports the snapshot into a user's live sections.
type Coordinator struct {
	repo       sectionRepo.SectionRepository
	markers    migrationRepo.MigrationRepository
	normalizer *schema.Normalizer
	snapshot   snapshot.Source
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Coordinator)

// WithNotifier publishes a change after every run that wrote a section.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

func NewCoordinator(repo sectionRepo.SectionRepository, markers migrationRepo.MigrationRepository,
	normalizer *schema.Normalizer, snap snapshot.Source, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		repo:       repo,
		markers:    markers,
		normalizer: normalizer,
		snapshot:   snap,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Migrate writes each snapshot section type into the user's live store. Types
// that already exist are skipped unless opts.OverwriteExisting is set. A
// failing type does not stop the others; the results cover every type and a
// *PartialFailureError is returned when any failed. Running it again with the
// same snapshot writes identical content.
func (c *Coordinator) Migrate(ctx context.Context, id models.Identity, opts Options) ([]models.MigrationResult, error) {
	if !id.Authenticated {
		return nil, models.ErrReadOnly
	}
	docs, err := c.snapshot.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	results := make([]models.MigrationResult, 0, len(docs))
	seen := make(map[models.SectionType]bool, len(docs))
	failed, wrote := false, false
	for _, raw := range docs {
		t := models.SectionType(stringOf(raw["type"]))
		if seen[t] {
			continue
		}
		seen[t] = true

		res := c.migrateOne(ctx, id.UserID, t, raw, opts)
		if res.Status == models.MigrationFailed {
			failed = true
			c.logger.Error("section migration failed",
				zap.String("userId", id.UserID), zap.String("type", string(t)), zap.String("error", res.Error))
		}
		if res.Status == models.MigrationMigrated {
			wrote = true
		}
		results = append(results, res)
	}
	if wrote && c.notifier != nil {
		c.notifier.Notify(ctx, id.UserID)
	}

	rec := models.MigrationRecord{
		UserID:    id.UserID,
		Migrated:  !failed,
		Results:   results,
		UpdatedAt: models.Timestamp(c.now()),
	}
	if prev, err := c.markers.Get(ctx, id.UserID); err == nil && prev != nil && prev.Migrated {
		rec.Migrated = true
	}
	if err := c.markers.Save(ctx, rec); err != nil {
		c.logger.Warn("failed to save migration marker", zap.String("userId", id.UserID), zap.Error(err))
	}

	c.logger.Info("migration finished",
		zap.String("userId", id.UserID), zap.Int("types", len(results)), zap.Bool("failures", failed))
	if failed {
		return results, &PartialFailureError{Results: results}
	}
	return results, nil
}

func (c *Coordinator) migrateOne(ctx context.Context, userID string, t models.SectionType, raw models.Document, opts Options) (res models.MigrationResult) {
	res = models.MigrationResult{Type: t}
	fail := func(err error) models.MigrationResult {
		res.Status = models.MigrationFailed
		res.Error = err.Error()
		return res
	}

	if err := c.normalizer.Registry().Check(t); err != nil {
		return fail(err)
	}

	if !opts.OverwriteExisting {
		_, err := c.repo.GetByType(ctx, userID, t)
		switch {
		case err == nil:
			res.Status = models.MigrationSkippedExists
			return res
		case !errors.Is(err, models.ErrNotFound):
			return fail(err)
		}
	}

	doc := models.Document{}
	for k, v := range raw {
		doc[k] = v
	}
	doc["userId"] = userID
	doc["id"] = models.SectionID(userID, t)
	doc["lastUpdated"] = ""
	canonical := c.normalizer.NormalizeWith(doc, t, snapshot.ItemIDs(t))
	canonical["lastUpdated"] = models.Timestamp(c.now())

	if err := c.repo.Replace(ctx, canonical); err != nil {
		return fail(err)
	}
	res.Status = models.MigrationMigrated
	return res
}

func stringOf(v interface{}) string {
	s, _ := v.(string)
	return s
}
