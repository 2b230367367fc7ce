package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"folio/config"
	"folio/models"
	"folio/services/migration"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeMigrationRun = "migration:run"

// MigrationPayload is the body of a migration:run task.
type MigrationPayload struct {
	UserID            string `json:"userId"`
	OverwriteExisting bool   `json:"overwriteExisting"`
}

// Migrator runs one user's snapshot migration.
type Migrator interface {
	Migrate(ctx context.Context, id models.Identity, opts migration.Options) ([]models.MigrationResult, error)
}

// RedisOpt returns the connection options for the task queue database.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewMigrationTask builds a migration:run task for userID.
func NewMigrationTask(userID string, opts migration.Options) (*asynq.Task, error) {
	payload, err := json.Marshal(MigrationPayload{UserID: userID, OverwriteExisting: opts.OverwriteExisting})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMigrationRun, payload, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}

// MigrationEnqueuer hands migrations to the background worker.
type MigrationEnqueuer struct {
	client *asynq.Client
}

func NewMigrationEnqueuer(opt asynq.RedisConnOpt) *MigrationEnqueuer {
	return &MigrationEnqueuer{client: asynq.NewClient(opt)}
}

// EnqueueMigration queues a migration and returns the task id.
func (e *MigrationEnqueuer) EnqueueMigration(ctx context.Context, userID string, opts migration.Options) (string, error) {
	task, err := NewMigrationTask(userID, opts)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue migration for %s: %w", userID, err)
	}
	return info.ID, nil
}

func (e *MigrationEnqueuer) Close() error {
	return e.client.Close()
}

// InitMigrationWorker starts the background worker and returns the server so
// the caller can shut it down.
func InitMigrationWorker(ctx context.Context, m Migrator, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeMigrationRun, handleMigrationTask(m, logger))

	go monitorRedisConnection(ctx, logger)

	// Start async worker with retry logic
	go func() {
		logger.Info("starting migration worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil {
				return
			}
			logger.Warn("failed to start migration worker",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("max retry attempts reached; background migrations disabled")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
	return srv
}

func handleMigrationTask(m Migrator, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p MigrationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid migration payload", zap.Error(err))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.UserID == "" {
			return fmt.Errorf("migration payload has no userId: %w", asynq.SkipRetry)
		}

		// Only authenticated callers can enqueue, so the task runs on their behalf.
		id := models.Identity{UserID: p.UserID, Authenticated: true}
		results, err := m.Migrate(ctx, id, migration.Options{OverwriteExisting: p.OverwriteExisting})
		if err != nil {
			logger.Error("background migration failed", zap.String("userId", p.UserID), zap.Error(err))
			return err
		}
		logger.Info("background migration finished", zap.String("userId", p.UserID), zap.Int("types", len(results)))
		return nil
	}
}

// monitorRedisConnection pings the queue database periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("task queue redis connection lost", zap.Error(err))
			}
		}
	}
}
