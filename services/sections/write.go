package sections

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"folio/models"
	"folio/utils/docpath"

	"go.uber.org/zap"
)

var writableRoots = map[string]bool{"title": true, "content": true, "data": true}

// CheckPath rejects paths outside title, content and data. Order and
// visibility only change through WriteBatch.
func CheckPath(path string) error {
	parts, err := docpath.Split(path)
	if err != nil {
		return err
	}
	if !writableRoots[parts[0]] {
		return fmt.Errorf("%w: %q is not editable by field writes", models.ErrInvalidPath, parts[0])
	}
	return nil
}

// WriteField merges value at path into the user's live section, creating the
// section from its default template first when it does not exist. The value is
// normalized in the context of its document, so new list items get ids.
func (s *Store) WriteField(ctx context.Context, id models.Identity, t models.SectionType, path string, value interface{}) (models.Section, error) {
	if !id.Authenticated {
		return models.Section{}, models.ErrReadOnly
	}
	if err := s.normalizer.Registry().Check(t); err != nil {
		return models.Section{}, err
	}
	if err := CheckPath(path); err != nil {
		return models.Section{}, err
	}

	current, err := s.ensure(ctx, id.UserID, t)
	if err != nil {
		return models.Section{}, err
	}

	// a stored document beyond field-level repair is left untouched
	base, err := s.normalizer.Repair(current, t)
	if err != nil {
		s.logger.Error("refusing field write over unrepairable section",
			zap.String("userId", id.UserID), zap.String("type", string(t)), zap.Error(err))
		return models.Section{}, err
	}
	draft, err := docpath.Set(base, path, value)
	if err != nil {
		return models.Section{}, err
	}
	next, err := s.normalizer.Strict(draft, t)
	if err != nil {
		return models.Section{}, err
	}
	written, ok := docpath.Get(next, path)
	if !ok {
		return models.Section{}, fmt.Errorf("%w: %s is not part of the %s schema", models.ErrInvalidPath, path, t)
	}

	ts := models.Timestamp(s.now())
	next["lastUpdated"] = ts
	if reflect.DeepEqual(base, current) {
		err = s.repo.SetField(ctx, id.UserID, t, path, written, ts)
	} else {
		// stored shape was legacy; persist the whole canonical document
		err = s.repo.Replace(ctx, next)
	}
	if err != nil {
		s.logger.Error("section field write failed",
			zap.String("userId", id.UserID), zap.String("type", string(t)),
			zap.String("path", path), zap.Error(err))
		return models.Section{}, err
	}

	s.publish(ctx, id.UserID)
	return models.SectionFromDocument(next), nil
}

// DeleteField removes the value at path from the user's live section. Paths
// must point inside data; removing a list element shifts the rest down, and
// a removed required field comes back as its default.
func (s *Store) DeleteField(ctx context.Context, id models.Identity, t models.SectionType, path string) (models.Section, error) {
	if !id.Authenticated {
		return models.Section{}, models.ErrReadOnly
	}
	if err := s.normalizer.Registry().Check(t); err != nil {
		return models.Section{}, err
	}
	parts, err := docpath.Split(path)
	if err != nil {
		return models.Section{}, err
	}
	if len(parts) < 2 || parts[0] != "data" {
		return models.Section{}, fmt.Errorf("%w: only fields inside data can be removed", models.ErrInvalidPath)
	}

	current, err := s.repo.GetByType(ctx, id.UserID, t)
	if err != nil {
		return models.Section{}, err
	}
	base, err := s.normalizer.Repair(current, t)
	if err != nil {
		return models.Section{}, err
	}
	draft, err := docpath.Delete(base, path)
	if err != nil {
		return models.Section{}, err
	}
	next, err := s.normalizer.Strict(draft, t)
	if err != nil {
		return models.Section{}, err
	}
	next["lastUpdated"] = models.Timestamp(s.now())
	if err := s.repo.Replace(ctx, next); err != nil {
		s.logger.Error("section field delete failed",
			zap.String("userId", id.UserID), zap.String("type", string(t)),
			zap.String("path", path), zap.Error(err))
		return models.Section{}, err
	}

	s.publish(ctx, id.UserID)
	return models.SectionFromDocument(next), nil
}

// ensure returns the live document, creating it from the default template
// with order equal to the current section count when absent.
func (s *Store) ensure(ctx context.Context, userID string, t models.SectionType) (models.Document, error) {
	doc, err := s.repo.GetByType(ctx, userID, t)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.normalizer.Template(userID, t, len(existing))
	if err != nil {
		return nil, err
	}
	tpl["lastUpdated"] = models.Timestamp(s.now())
	if err := s.repo.CreateIfAbsent(ctx, tpl); err != nil {
		return nil, err
	}
	s.logger.Info("created section from template",
		zap.String("userId", userID), zap.String("type", string(t)))

	// re-read: a concurrent writer may have created it first
	return s.repo.GetByType(ctx, userID, t)
}

// WriteBatch persists order and visibility of every given section in one
// all-or-nothing write.
func (s *Store) WriteBatch(ctx context.Context, id models.Identity, list []models.Section) error {
	if !id.Authenticated {
		return models.ErrReadOnly
	}
	patches := make([]models.LayoutPatch, 0, len(list))
	for _, sec := range list {
		if err := s.normalizer.Registry().Check(sec.Type); err != nil {
			return err
		}
		patches = append(patches, models.LayoutPatch{ID: sec.ID, Type: sec.Type, Order: sec.Order, Visible: sec.Visible})
	}
	if len(patches) == 0 {
		return nil
	}

	if err := s.repo.ApplyLayout(ctx, id.UserID, patches, models.Timestamp(s.now())); err != nil {
		s.logger.Error("layout batch write failed",
			zap.String("userId", id.UserID), zap.Int("sections", len(patches)), zap.Error(err))
		return err
	}
	s.publish(ctx, id.UserID)
	return nil
}

// Notify publishes a change for writes made outside the store, such as a
// migration run.
func (s *Store) Notify(ctx context.Context, userID string) {
	s.publish(ctx, userID)
}

func (s *Store) publish(ctx context.Context, userID string) {
	if err := s.feed.Publish(ctx, userID); err != nil {
		s.logger.Warn("failed to publish section change", zap.String("userId", userID), zap.Error(err))
	}
}

func isUnavailable(err error) bool {
	return errors.Is(err, models.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
