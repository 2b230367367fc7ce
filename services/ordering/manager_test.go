package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"folio/models"
)

type fakeBatch struct {
	mu      sync.Mutex
	err     error
	saved   [][]models.Section
	started chan struct{}
	release chan struct{}
}

func (f *fakeBatch) WriteBatch(ctx context.Context, id models.Identity, list []models.Section) error {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, list)
	return nil
}

var owner = models.Identity{UserID: "u1", Authenticated: true}

func layout(v View) map[string]int {
	out := map[string]int{}
	for _, s := range v.Sections {
		out[s.ID] = s.Order
	}
	return out
}

func TestSaveRenumbersAndReportsEveryItem(t *testing.T) {
	store := &fakeBatch{}
	m := NewManager(store, nil)
	list := []models.Section{
		{ID: "a", Type: models.SectionIntro, Order: 4},
		{ID: "b", Type: models.SectionSkills, Order: 4},
		{ID: "c", Type: models.SectionProjects, Order: 9},
	}

	results, err := m.Save(context.Background(), owner, list)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.OK {
			t.Fatalf("unexpected failure %+v", r)
		}
	}
	for i, s := range store.saved[0] {
		if s.Order != i {
			t.Fatalf("persisted orders not 0..N-1: %+v", store.saved[0])
		}
	}
	for typ, st := range m.View("u1").States {
		if st != Clean {
			t.Fatalf("%s should be clean, got %s", typ, st)
		}
	}
}

func TestFailedSaveKeepsEditsDirty(t *testing.T) {
	store := &fakeBatch{err: models.NewStoreError("write layout", models.ErrUnavailable, nil)}
	m := NewManager(store, nil)
	m.Reset("u1", threeSections())

	if _, err := m.Move("u1", 2, 0); err != nil {
		t.Fatal(err)
	}
	results, err := m.SaveStaged(context.Background(), owner)
	if !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	for _, r := range results {
		if r.OK || r.Error == "" {
			t.Fatalf("batch failure must be reported on every item: %+v", r)
		}
	}

	v := m.View("u1")
	if v.Sections[0].ID != "c" {
		t.Fatalf("local edit lost: %+v", v.Sections)
	}
	for typ, st := range v.States {
		if st != Dirty {
			t.Fatalf("%s should be dirty after failure, got %s", typ, st)
		}
	}

	store.err = nil
	if _, err := m.SaveStaged(context.Background(), owner); err != nil {
		t.Fatal(err)
	}
	if got := layout(m.View("u1")); got["c"] != 0 || got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("retry did not persist the edit: %v", got)
	}
}

func TestStalePushDuringSaveDoesNotRevert(t *testing.T) {
	store := &fakeBatch{started: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(store, nil)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	a := models.Section{ID: "A", Type: models.SectionIntro, Visible: true}
	b := models.Section{ID: "B", Type: models.SectionSkills, Visible: true}
	m.Reset("u1", []models.Section{withOrder(a, 1), withOrder(b, 0)})

	done := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background(), owner, []models.Section{withOrder(a, 0), withOrder(b, 1)})
		done <- err
	}()
	<-store.started

	stale := []models.Section{withOrder(a, 1), withOrder(b, 0)}
	v := m.ApplyPush("u1", stale, base.Add(-time.Second))
	if got := layout(v); got["A"] != 0 || got["B"] != 1 {
		t.Fatalf("stale push reverted optimistic state: %v", got)
	}
	if !v.Saving {
		t.Fatal("save should be in flight")
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := layout(m.View("u1")); got["A"] != 0 || got["B"] != 1 {
		t.Fatalf("final state %v, want A:0 B:1", got)
	}

	// after the acknowledgment pushes are trusted again
	v = m.ApplyPush("u1", []models.Section{withOrder(a, 1), withOrder(b, 0)}, base.Add(time.Minute))
	if got := layout(v); got["A"] != 1 || got["B"] != 0 {
		t.Fatalf("post-ack push ignored: %v", got)
	}
}

func TestNewerDifferingPushDuringSaveIsConflict(t *testing.T) {
	store := &fakeBatch{started: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(store, nil)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	a := models.Section{ID: "A", Type: models.SectionIntro, Visible: true, Title: "old"}
	b := models.Section{ID: "B", Type: models.SectionSkills, Visible: true}

	done := make(chan error, 1)
	go func() {
		_, err := m.Save(context.Background(), owner, []models.Section{a, b})
		done <- err
	}()
	<-store.started

	pushedA := withOrder(a, 1)
	pushedA.Title = "new"
	v := m.ApplyPush("u1", []models.Section{pushedA, withOrder(b, 0)}, base.Add(time.Second))
	if v.States[models.SectionIntro] != Conflict {
		t.Fatalf("expected conflict, got %s", v.States[models.SectionIntro])
	}
	if got := layout(v); got["A"] != 0 {
		t.Fatalf("push overrode in-flight layout: %v", got)
	}
	if v.Sections[0].Title != "new" {
		t.Fatal("pushed content should still be merged")
	}

	close(store.release)
	<-done
	if st := m.View("u1").States[models.SectionIntro]; st != Clean {
		t.Fatalf("ack should resolve conflict, got %s", st)
	}
}

func TestPushKeepsUnsavedLocalLayout(t *testing.T) {
	m := NewManager(&fakeBatch{}, nil)
	m.Reset("u1", threeSections())
	if _, err := m.Toggle("u1", "a"); err != nil {
		t.Fatal(err)
	}

	v := m.ApplyPush("u1", threeSections(), time.Now())
	if v.Sections[0].Visible {
		t.Fatal("unsaved toggle was discarded by a push")
	}
	if v.States[models.SectionIntro] != Dirty || v.States[models.SectionSkills] != Clean {
		t.Fatalf("unexpected states %v", v.States)
	}
	if _, err := m.Toggle("u1", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMoveOutOfRange(t *testing.T) {
	m := NewManager(&fakeBatch{}, nil)
	m.Reset("u1", threeSections())
	if _, err := m.Move("u1", 0, 3); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func withOrder(s models.Section, order int) models.Section {
	s.Order = order
	return s
}

func TestPushReadBeforeAcknowledgedSaveIsDropped(t *testing.T) {
	m := NewManager(&fakeBatch{}, nil)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	a := models.Section{ID: "A", Type: models.SectionIntro, Visible: true}
	b := models.Section{ID: "B", Type: models.SectionSkills, Visible: true}
	m.Reset("u1", []models.Section{withOrder(a, 1), withOrder(b, 0)})
	if _, err := m.Save(context.Background(), owner, []models.Section{withOrder(a, 0), withOrder(b, 1)}); err != nil {
		t.Fatal(err)
	}

	v := m.ApplyPush("u1", []models.Section{withOrder(a, 1), withOrder(b, 0)}, base.Add(-time.Second))
	if got := layout(v); got["A"] != 0 || got["B"] != 1 {
		t.Fatalf("late stale push reverted the saved layout: %v", got)
	}
	store := m.store.(*fakeBatch)
	if _, err := m.SaveStaged(context.Background(), owner); err != nil {
		t.Fatal(err)
	}
	last := store.saved[len(store.saved)-1]
	if last[0].ID != "A" || last[0].Order != 0 {
		t.Fatalf("resave persisted a reverted layout: %+v", last)
	}
}

func TestFreshLoadReconcilesExistingSession(t *testing.T) {
	m := NewManager(&fakeBatch{}, nil)
	m.Reset("u1", threeSections())
	if _, err := m.Toggle("u1", "a"); err != nil {
		t.Fatal(err)
	}

	reloaded := threeSections()
	reloaded[1].Order, reloaded[2].Order = 2, 1
	reloaded = append(reloaded, models.Section{ID: "d", Type: models.SectionEducation, Order: 3, Visible: true})
	v := m.ApplyPush("u1", reloaded, time.Now())

	if got := layout(v); got["b"] != 2 || got["c"] != 1 || got["d"] != 3 {
		t.Fatalf("fresh load not adopted: %v", got)
	}
	if v.Sections[0].Visible || v.States[models.SectionIntro] != Dirty {
		t.Fatal("unsaved toggle lost on reload")
	}
}

func TestIdleCleanSessionsArePruned(t *testing.T) {
	m := NewManager(&fakeBatch{}, nil)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.Reset("clean", threeSections())
	m.Reset("dirty", threeSections())
	if _, err := m.Toggle("dirty", "a"); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(DefaultIdleTTL + time.Minute)
	m.View("someone-else")

	if m.Loaded("clean") {
		t.Fatal("idle clean session was kept")
	}
	if !m.Loaded("dirty") {
		t.Fatal("session with unsaved edits was pruned")
	}
}
