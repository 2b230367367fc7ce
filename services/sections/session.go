package sections

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionTracker remembers which users have already been served live data.
// Once marked, the snapshot is never consulted again for that user until the
// mark expires.
type SessionTracker interface {
	MarkLive(ctx context.Context, userID string) error
	SeenLive(ctx context.Context, userID string) (bool, error)
}

type MemorySessions struct {
	mu   sync.RWMutex
	live map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemorySessions creates an in-process tracker; ttl <= 0 never expires.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{live: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (m *MemorySessions) MarkLive(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.live[userID] = m.now()
	m.mu.Unlock()
	return nil
}

func (m *MemorySessions) SeenLive(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	at, ok := m.live[userID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && m.now().Sub(at) > m.ttl {
		return false, nil
	}
	return true, nil
}

// RedisSessions shares the live mark across API instances.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func sessionKey(userID string) string {
	return "session:live:" + userID
}

func (r *RedisSessions) MarkLive(ctx context.Context, userID string) error {
	return r.client.Set(ctx, sessionKey(userID), time.Now().UTC().Format(time.RFC3339), r.ttl).Err()
}

func (r *RedisSessions) SeenLive(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
