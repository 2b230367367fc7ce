package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"folio/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUploadExists   = errors.New("an upload with this key is already active")
	ErrUploadNotFound = errors.New("upload not found")
	ErrNotRetriable   = errors.New("only failed uploads can be retried")
)

// UploadManager runs uploads concurrently, each tracked under its own key.
// Failed uploads keep their bytes so they can be retried on their own.
type UploadManager struct {
	store  ObjectStore
	logger *zap.Logger
	slots  chan struct{}

	mu      sync.Mutex
	uploads map[string]*upload
}

type upload struct {
	file     models.UploadFile
	progress models.UploadProgress
}

// NewUploadManager limits concurrent transfers to maxConcurrent (unbounded when <= 0).
func NewUploadManager(store ObjectStore, maxConcurrent int, logger *zap.Logger) *UploadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &UploadManager{store: store, logger: logger, uploads: make(map[string]*upload)}
	if maxConcurrent > 0 {
		m.slots = make(chan struct{}, maxConcurrent)
	}
	return m
}

// NewKey returns a fresh upload key.
func NewKey() string {
	return uuid.NewString()
}

// Start begins uploading file under key and returns its progress channel.
// The channel always ends with a succeeded or failed event and is then closed.
// Intermediate fraction events may be coalesced for slow readers.
func (m *UploadManager) Start(ctx context.Context, key string, file models.UploadFile) (<-chan models.UploadProgress, error) {
	if err := CheckCategory(file.Category); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if existing, ok := m.uploads[key]; ok && existing.progress.Status != models.UploadFailed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUploadExists, key)
	}
	u := &upload{file: file, progress: models.UploadProgress{Key: key, Status: models.UploadPending}}
	m.uploads[key] = u
	m.mu.Unlock()

	return m.run(ctx, key, u), nil
}

// Retry restarts a failed upload with the bytes it was started with.
func (m *UploadManager) Retry(ctx context.Context, key string) (<-chan models.UploadProgress, error) {
	m.mu.Lock()
	u, ok := m.uploads[key]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, key)
	}
	if u.progress.Status != models.UploadFailed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrNotRetriable, key, u.progress.Status)
	}
	u.progress = models.UploadProgress{Key: key, Status: models.UploadPending}
	m.mu.Unlock()

	m.logger.Info("retrying upload", zap.String("key", key), zap.String("name", u.file.Name))
	return m.run(ctx, key, u), nil
}

// Status returns the latest progress recorded for key.
func (m *UploadManager) Status(key string) (models.UploadProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[key]
	if !ok {
		return models.UploadProgress{}, false
	}
	return u.progress, true
}

func (m *UploadManager) run(ctx context.Context, key string, u *upload) <-chan models.UploadProgress {
	events := make(chan models.UploadProgress, 1)

	emit := func(p models.UploadProgress, final bool) {
		m.mu.Lock()
		u.progress = p
		m.mu.Unlock()
		select {
		case events <- p:
		default:
			if !final {
				return
			}
			// make room so the final event is never lost
			select {
			case <-events:
			default:
			}
			events <- p
		}
	}

	go func() {
		defer close(events)
		if m.slots != nil {
			m.slots <- struct{}{}
			defer func() { <-m.slots }()
		}

		emit(models.UploadProgress{Key: key, Status: models.UploadRunning}, false)
		res, err := m.store.Put(ctx, u.file, func(f float64) {
			if f > 1 {
				f = 1
			}
			emit(models.UploadProgress{Key: key, Status: models.UploadRunning, Fraction: f}, false)
		})
		if err != nil {
			m.logger.Warn("upload failed", zap.String("key", key), zap.String("name", u.file.Name), zap.Error(err))
			emit(models.UploadProgress{Key: key, Status: models.UploadFailed, Error: err.Error()}, true)
			return
		}
		emit(models.UploadProgress{Key: key, Status: models.UploadSucceeded, Fraction: 1, Result: &res}, true)
	}()
	return events
}

// UploadAll uploads every file concurrently and waits for all of them. The
// returned map holds each key's final progress; the error is the first
// failure, and siblings still run to completion.
func (m *UploadManager) UploadAll(ctx context.Context, files map[string]models.UploadFile) (map[string]models.UploadProgress, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]models.UploadProgress, len(files))
	)
	for key, file := range files {
		key, file := key, file
		g.Go(func() error {
			events, err := m.Start(ctx, key, file)
			if err != nil {
				mu.Lock()
				results[key] = models.UploadProgress{Key: key, Status: models.UploadFailed, Error: err.Error()}
				mu.Unlock()
				return err
			}
			var last models.UploadProgress
			for p := range events {
				last = p
			}
			mu.Lock()
			results[key] = last
			mu.Unlock()
			if last.Status == models.UploadFailed {
				return fmt.Errorf("upload %s failed: %s", key, last.Error)
			}
			return nil
		})
	}
	err := g.Wait()
	return results, err
}
