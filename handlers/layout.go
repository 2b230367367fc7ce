package handlers

import (
	"net/http"
	"time"

	"folio/middleware"
	"folio/services/ordering"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LayoutHandler exposes the optimistic reorder/visibility workflow.
type LayoutHandler struct {
	Store   SectionService
	Manager *ordering.Manager
}

func NewLayoutHandler(store SectionService, manager *ordering.Manager) *LayoutHandler {
	return &LayoutHandler{Store: store, Manager: manager}
}

// GetLayoutHandler reconciles a fresh load with the caller's layout. Unsaved
// local edits survive; everything else follows the live store.
func (h *LayoutHandler) GetLayoutHandler(c *gin.Context) {
	id := middleware.GetIdentity(c)
	loadedAt := time.Now()
	res, err := h.Store.LoadAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to load sections", err)
		return
	}
	c.JSON(http.StatusOK, h.Manager.ApplyPush(id.UserID, res.Sections, loadedAt))
}

type moveRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// MoveHandler moves the section at index from to index to.
func (h *LayoutHandler) MoveHandler(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if !h.ensureLoaded(c) {
		return
	}
	view, err := h.Manager.Move(middleware.GetIdentity(c).UserID, *req.From, *req.To)
	if err != nil {
		respondError(c, "failed to move section", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type toggleRequest struct {
	ID string `json:"id" binding:"required"`
}

// ToggleHandler flips one section's visibility. The id may be a section id or type.
func (h *LayoutHandler) ToggleHandler(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if !h.ensureLoaded(c) {
		return
	}
	view, err := h.Manager.Toggle(middleware.GetIdentity(c).UserID, req.ID)
	if err != nil {
		respondError(c, "failed to toggle section", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SaveHandler persists the staged layout in one batch and reports every item.
func (h *LayoutHandler) SaveHandler(c *gin.Context) {
	id := middleware.GetIdentity(c)
	results, err := h.Manager.SaveStaged(c.Request.Context(), id)
	if err != nil {
		getLogger(c).Error("layout save failed", zap.String("userId", id.UserID), zap.Error(err))
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "results": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "layout": h.Manager.View(id.UserID)})
}

func (h *LayoutHandler) ensureLoaded(c *gin.Context) bool {
	id := middleware.GetIdentity(c)
	if h.Manager.Loaded(id.UserID) {
		return true
	}
	loadedAt := time.Now()
	res, err := h.Store.LoadAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to load sections", err)
		return false
	}
	h.Manager.ApplyPush(id.UserID, res.Sections, loadedAt)
	return true
}
