package handlers

import (
	"context"
	"errors"
	"net/http"

	"folio/middleware"
	"folio/models"
	"folio/services/migration"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Migrator imports the snapshot into a user's live sections.
type Migrator interface {
	Migrate(ctx context.Context, id models.Identity, opts migration.Options) ([]models.MigrationResult, error)
}

// MigrationEnqueuer schedules a migration on the background worker.
type MigrationEnqueuer interface {
	EnqueueMigration(ctx context.Context, userID string, opts migration.Options) (string, error)
}

// AdminHandler handles administrative operations on the caller's data.
type AdminHandler struct {
	Migrator Migrator
	Queue    MigrationEnqueuer
}

func NewAdminHandler(m Migrator, queue MigrationEnqueuer) *AdminHandler {
	return &AdminHandler{Migrator: m, Queue: queue}
}

type migrateRequest struct {
	OverwriteExisting bool `json:"overwriteExisting"`
	Async             bool `json:"async"`
}

// MigrateHandler copies the snapshot into the caller's live store, either
// inline or through the task queue.
func (h *AdminHandler) MigrateHandler(c *gin.Context) {
	var req migrateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
			return
		}
	}
	id := middleware.GetIdentity(c)
	opts := migration.Options{OverwriteExisting: req.OverwriteExisting}
	logger := getLogger(c)

	if req.Async {
		if h.Queue == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background migrations are not configured"})
			return
		}
		taskID, err := h.Queue.EnqueueMigration(c.Request.Context(), id.UserID, opts)
		if err != nil {
			respondError(c, "failed to enqueue migration", err)
			return
		}
		logger.Info("migration enqueued", zap.String("userId", id.UserID), zap.String("taskId", taskID))
		c.JSON(http.StatusAccepted, gin.H{"taskId": taskID})
		return
	}

	results, err := h.Migrator.Migrate(c.Request.Context(), id, opts)
	var partial *migration.PartialFailureError
	switch {
	case errors.As(err, &partial):
		logger.Error("migration partially failed", zap.String("userId", id.UserID), zap.Error(err))
		c.JSON(http.StatusMultiStatus, gin.H{"results": results, "error": err.Error()})
	case err != nil:
		respondError(c, "migration failed", err)
	default:
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
