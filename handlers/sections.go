package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"folio/middleware"
	"folio/models"
	"folio/services/ordering"
	"folio/services/sections"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SectionService is the part of sections.Store the HTTP layer uses.
type SectionService interface {
	LoadAll(ctx context.Context, id models.Identity) (sections.LoadResult, error)
	Get(ctx context.Context, id models.Identity, t models.SectionType) (models.Section, error)
	WriteField(ctx context.Context, id models.Identity, t models.SectionType, path string, value interface{}) (models.Section, error)
	DeleteField(ctx context.Context, id models.Identity, t models.SectionType, path string) (models.Section, error)
	Subscribe(ctx context.Context, id models.Identity, onChange func([]models.Section, time.Time)) (func(), error)
}

// SectionHandler serves section reads, field edits and the live stream.
type SectionHandler struct {
	Store  SectionService
	Layout *ordering.Manager
}

func NewSectionHandler(store SectionService, layout *ordering.Manager) *SectionHandler {
	return &SectionHandler{Store: store, Layout: layout}
}

// ListSectionsHandler returns every section for the caller, live or snapshot.
func (h *SectionHandler) ListSectionsHandler(c *gin.Context) {
	id := middleware.GetIdentity(c)
	res, err := h.Store.LoadAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to load sections", err)
		return
	}
	if res.Degraded {
		getLogger(c).Warn("serving degraded section list", zap.String("userId", id.UserID), zap.Error(res.Err))
	}
	c.JSON(http.StatusOK, res)
}

// GetSectionHandler returns one section by type.
func (h *SectionHandler) GetSectionHandler(c *gin.Context) {
	id := middleware.GetIdentity(c)
	sec, err := h.Store.Get(c.Request.Context(), id, models.SectionType(c.Param("type")))
	if err != nil {
		respondError(c, "failed to get section", err)
		return
	}
	c.JSON(http.StatusOK, sec)
}

type writeFieldRequest struct {
	Path  string      `json:"path" binding:"required"`
	Value interface{} `json:"value"`
}

// WriteFieldHandler sets one field of a section, creating the section from
// its template when it does not exist yet.
func (h *SectionHandler) WriteFieldHandler(c *gin.Context) {
	var req writeFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	id := middleware.GetIdentity(c)
	sec, err := h.Store.WriteField(c.Request.Context(), id, models.SectionType(c.Param("type")), req.Path, req.Value)
	if err != nil {
		respondError(c, "failed to write section field", err)
		return
	}
	c.JSON(http.StatusOK, sec)
}

type deleteFieldRequest struct {
	Path string `json:"path" binding:"required"`
}

// DeleteFieldHandler removes one data field or list item from a section.
func (h *SectionHandler) DeleteFieldHandler(c *gin.Context) {
	var req deleteFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	id := middleware.GetIdentity(c)
	sec, err := h.Store.DeleteField(c.Request.Context(), id, models.SectionType(c.Param("type")), req.Path)
	if err != nil {
		respondError(c, "failed to delete section field", err)
		return
	}
	c.JSON(http.StatusOK, sec)
}

type streamEvent struct {
	view ordering.View
	at   time.Time
}

// StreamHandler pushes the caller's layout over server-sent events after
// every live change. Pushes pass through the layout manager so a save that is
// still in flight is not reverted by an older push.
func (h *SectionHandler) StreamHandler(c *gin.Context) {
	id := middleware.GetIdentity(c)
	ctx := c.Request.Context()

	loadedAt := time.Now()
	initial, err := h.Store.LoadAll(ctx, id)
	if err != nil {
		respondError(c, "failed to load sections", err)
		return
	}

	events := make(chan streamEvent, 8)
	unsubscribe, err := h.Store.Subscribe(ctx, id, func(list []models.Section, at time.Time) {
		view := h.Layout.ApplyPush(id.UserID, list, at)
		select {
		case events <- streamEvent{view: view, at: at}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		respondError(c, "failed to subscribe to section changes", err)
		return
	}
	defer unsubscribe()

	getLogger(c).Info("section stream opened", zap.String("userId", id.UserID))
	c.SSEvent("sections", h.Layout.ApplyPush(id.UserID, initial.Sections, loadedAt))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent("sections", gin.H{"sections": ev.view.Sections, "states": ev.view.States, "saving": ev.view.Saving, "at": ev.at})
			return true
		}
	})
}
