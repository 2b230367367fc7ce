package sections

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ChangeFeed notifies subscribers that a user's live sections changed. Each
// event carries the time of the change; subscribers reload the full list.
type ChangeFeed interface {
	Publish(ctx context.Context, userID string) error
	Watch(ctx context.Context, userID string) (<-chan time.Time, error)
}

// MemoryFeed fans out changes within one process.
type MemoryFeed struct {
	mu       sync.Mutex
	watchers map[string]map[chan time.Time]struct{}
	now      func() time.Time
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{watchers: make(map[string]map[chan time.Time]struct{}), now: time.Now}
}

func (f *MemoryFeed) Publish(ctx context.Context, userID string) error {
	at := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.watchers[userID] {
		select {
		case ch <- at:
		default:
			// drop the stale pending tick in favour of the newer one
			select {
			case <-ch:
			default:
			}
			ch <- at
		}
	}
	return nil
}

func (f *MemoryFeed) Watch(ctx context.Context, userID string) (<-chan time.Time, error) {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	if f.watchers[userID] == nil {
		f.watchers[userID] = make(map[chan time.Time]struct{})
	}
	f.watchers[userID][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watchers[userID], ch)
		if len(f.watchers[userID]) == 0 {
			delete(f.watchers, userID)
		}
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

// RedisChangeFeed publishes change events on a per-user pub/sub channel so
// every API instance sees writes made by the others.
type RedisChangeFeed struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisChangeFeed(client *redis.Client, logger *zap.Logger) *RedisChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChangeFeed{client: client, logger: logger}
}

func channelFor(userID string) string {
	return "sections:" + userID
}

func (f *RedisChangeFeed) Publish(ctx context.Context, userID string) error {
	return f.client.Publish(ctx, channelFor(userID), time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

func (f *RedisChangeFeed) Watch(ctx context.Context, userID string) (<-chan time.Time, error) {
	pubsub := f.client.Subscribe(ctx, channelFor(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan time.Time, 1)
	msgs := pubsub.Channel()
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				at, err := time.Parse(time.RFC3339Nano, msg.Payload)
				if err != nil {
					f.logger.Warn("malformed section change event", zap.String("payload", msg.Payload))
					at = time.Now()
				}
				select {
				case out <- at:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
