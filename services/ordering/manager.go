package ordering

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"folio/models"

	"go.uber.org/zap"
)

// BatchWriter persists order and visibility for a whole list at once.
type BatchWriter interface {
	WriteBatch(ctx context.Context, id models.Identity, list []models.Section) error
}

// Manager holds each user's optimistic layout and reconciles it with saves
// and with pushes from the live store.
type Manager struct {
	store  BatchWriter
	logger *zap.Logger
	now    func() time.Time

	idleTTL   time.Duration
	mu        sync.Mutex
	sessions  map[string]*session
	lastPrune time.Time
}

// DefaultIdleTTL is how long an untouched session with nothing unsaved is kept.
const DefaultIdleTTL = 30 * time.Minute

type session struct {
	list     []models.Section
	states   map[models.SectionType]State
	inFlight *flight
	// ackedFrom is the start of the last acknowledged save. Anything read
	// before it predates that save.
	ackedFrom time.Time
	touched   time.Time
}

type flight struct {
	startedAt time.Time
}

// View is a user's current layout and the state of every section in it.
type View struct {
	Sections []models.Section             `json:"sections"`
	States   map[models.SectionType]State `json:"states"`
	Saving   bool                         `json:"saving"`
}

func NewManager(store BatchWriter, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		logger:   logger,
		now:      time.Now,
		idleTTL:  DefaultIdleTTL,
		sessions: make(map[string]*session),
	}
}

func (m *Manager) session(userID string) *session {
	now := m.now()
	s, ok := m.sessions[userID]
	if !ok {
		m.prune(now)
		s = &session{states: make(map[models.SectionType]State)}
		m.sessions[userID] = s
	}
	s.touched = now
	return s
}

// prune drops sessions idle for longer than idleTTL that hold no unsaved
// edits. It runs at most once per idleTTL.
func (m *Manager) prune(now time.Time) {
	if now.Sub(m.lastPrune) < m.idleTTL {
		return
	}
	m.lastPrune = now
	for userID, s := range m.sessions {
		if now.Sub(s.touched) >= m.idleTTL && !s.pending() {
			delete(m.sessions, userID)
		}
	}
}

func (s *session) pending() bool {
	if s.inFlight != nil {
		return true
	}
	for _, st := range s.states {
		if st != Clean {
			return true
		}
	}
	return false
}

func (s *session) view() View {
	states := make(map[models.SectionType]State, len(s.list))
	for _, sec := range s.list {
		states[sec.Type] = s.states[sec.Type]
	}
	return View{Sections: clone(s.list), States: states, Saving: s.inFlight != nil}
}

// Reset replaces the user's layout with list, all sections Clean, discarding
// any unsaved edits.
func (m *Manager) Reset(userID string, list []models.Section) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	s.list = sorted(list)
	s.states = make(map[models.SectionType]State, len(list))
	return s.view()
}

// Loaded reports whether the user already has a layout session.
func (m *Manager) Loaded(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

func (m *Manager) View(userID string) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session(userID).view()
}

// Move applies a reorder gesture locally and marks every section whose order
// changed as Dirty.
func (m *Manager) Move(userID string, from, to int) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	if from < 0 || from >= len(s.list) || to < 0 || to >= len(s.list) {
		return s.view(), fmt.Errorf("%w: move %d -> %d out of range for %d sections", models.ErrValidation, from, to, len(s.list))
	}
	next := Move(s.list, from, to)
	s.markChanged(next)
	s.list = next
	return s.view(), nil
}

// Toggle flips one section's visibility locally.
func (m *Manager) Toggle(userID, idOrType string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	if indexOf(s.list, idOrType) < 0 {
		return s.view(), models.NewStoreError("toggle "+idOrType, models.ErrNotFound, nil)
	}
	next := ToggleVisibility(s.list, idOrType)
	s.markChanged(next)
	s.list = next
	return s.view(), nil
}

func (s *session) markChanged(next []models.Section) {
	prev := make(map[models.SectionType]models.Section, len(s.list))
	for _, sec := range s.list {
		prev[sec.Type] = sec
	}
	for _, sec := range next {
		old, ok := prev[sec.Type]
		if !ok || old.Order != sec.Order || old.Visible != sec.Visible {
			s.states[sec.Type] = Dirty
		}
	}
}

// SaveStaged saves the user's current local layout.
func (m *Manager) SaveStaged(ctx context.Context, id models.Identity) ([]models.ItemResult, error) {
	return m.Save(ctx, id, m.View(id.UserID).Sections)
}

// Save renumbers list to 0..N-1 and persists it in one all-or-nothing batch.
// Every item gets a result; a failed batch is reported against every item
// and the local edits stay Dirty so the caller can retry.
func (m *Manager) Save(ctx context.Context, id models.Identity, list []models.Section) ([]models.ItemResult, error) {
	list = Renumber(clone(list))

	m.mu.Lock()
	s := m.session(id.UserID)
	if s.inFlight != nil {
		m.mu.Unlock()
		return failAll(list, ErrSaveInFlight), ErrSaveInFlight
	}
	s.list = clone(list)
	for _, sec := range list {
		s.states[sec.Type] = Saving
	}
	started := m.now()
	s.inFlight = &flight{startedAt: started}
	m.mu.Unlock()

	err := m.store.WriteBatch(ctx, id, list)

	m.mu.Lock()
	defer m.mu.Unlock()
	s.inFlight = nil
	if err != nil {
		for _, sec := range list {
			if st := s.states[sec.Type]; st == Saving || st == Conflict {
				s.states[sec.Type] = Dirty
			}
		}
		m.logger.Warn("layout save failed; edits kept",
			zap.String("userId", id.UserID), zap.Int("sections", len(list)), zap.Error(err))
		return failAll(list, err), err
	}

	// the acknowledged save is authoritative over anything read before it
	s.ackedFrom = started
	for _, sec := range list {
		if st := s.states[sec.Type]; st == Saving || st == Conflict {
			s.states[sec.Type] = Clean
		}
	}
	results := make([]models.ItemResult, len(list))
	for i, sec := range list {
		results[i] = models.ItemResult{ID: sec.ID, Type: sec.Type, OK: true}
	}
	return results, nil
}

// ErrSaveInFlight rejects a second save for a user before the first is acknowledged.
var ErrSaveInFlight = errors.New("a layout save is already in flight")

func failAll(list []models.Section, err error) []models.ItemResult {
	results := make([]models.ItemResult, len(list))
	for i, sec := range list {
		results[i] = models.ItemResult{ID: sec.ID, Type: sec.Type, OK: false, Error: err.Error()}
	}
	return results
}

// ApplyPush reconciles a list pushed by the live store at pushedAt.
//
// A freshly loaded list goes through here too, dated when the load began.
// Pushes dated before the start of the in-flight or last acknowledged save
// are dropped. While a save is in flight, newer pushes only contribute
// content: their order and visibility never override the optimistic layout,
// and sections where they differ are marked Conflict. Outside a save, a push is the source of truth,
// except that sections with unsaved local edits keep their local layout.
func (m *Manager) ApplyPush(userID string, pushed []models.Section, pushedAt time.Time) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(userID)
	if pushedAt.Before(s.ackedFrom) || (s.inFlight != nil && pushedAt.Before(s.inFlight.startedAt)) {
		m.logger.Debug("dropping push older than the latest layout save",
			zap.String("userId", userID), zap.Time("pushedAt", pushedAt))
		return s.view()
	}

	local := make(map[models.SectionType]models.Section, len(s.list))
	for _, sec := range s.list {
		local[sec.Type] = sec
	}

	next := make([]models.Section, 0, len(pushed))
	states := make(map[models.SectionType]State, len(pushed))
	for _, sec := range pushed {
		old, had := local[sec.Type]
		st := s.states[sec.Type]
		keepLayout := had && (s.inFlight != nil || st == Dirty || st == Conflict)
		if !keepLayout {
			next = append(next, sec)
			states[sec.Type] = Clean
			continue
		}
		switch {
		case old.Order == sec.Order && old.Visible == sec.Visible:
			if s.inFlight == nil {
				st = Clean
			}
		case s.inFlight != nil:
			st = Conflict
		}
		sec.Order, sec.Visible = old.Order, old.Visible
		next = append(next, sec)
		states[sec.Type] = st
	}
	s.list = sorted(next)
	s.states = states
	return s.view()
}

func sorted(list []models.Section) []models.Section {
	out := clone(list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
