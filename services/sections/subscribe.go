package sections

import (
	"context"
	"sync"
	"time"

	"folio/models"

	"go.uber.org/zap"
)

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (sub *subscription) stop() {
	sub.once.Do(sub.cancel)
}

// Subscribe delivers the full, re-normalized section list to onChange after
// every live change, together with the time of the change. A user has at most
// one subscription: establishing a new one stops the previous one first.
func (s *Store) Subscribe(ctx context.Context, id models.Identity, onChange func([]models.Section, time.Time)) (func(), error) {
	s.subMu.Lock()
	if prev, ok := s.subs[id.UserID]; ok {
		prev.stop()
		delete(s.subs, id.UserID)
	}
	s.subMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	events, err := s.feed.Watch(subCtx, id.UserID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{cancel: cancel}
	s.subMu.Lock()
	s.subs[id.UserID] = sub
	s.subMu.Unlock()

	go func() {
		for at := range events {
			if subCtx.Err() != nil {
				return
			}
			docs, err := s.repo.ListByUser(subCtx, id.UserID)
			if err != nil {
				s.logger.Warn("failed to reload sections after change",
					zap.String("userId", id.UserID), zap.Error(err))
				continue
			}
			if subCtx.Err() != nil {
				return
			}
			onChange(s.normalizeAll(docs), at)
		}
	}()

	unsubscribe := func() {
		sub.stop()
		s.subMu.Lock()
		if s.subs[id.UserID] == sub {
			delete(s.subs, id.UserID)
		}
		s.subMu.Unlock()
	}
	return unsubscribe, nil
}
