package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playrise/questengine/game/quest"
	mw "github.com/playrise/questengine/middleware"
	"go.uber.org/zap"
)

// QuestHandler exposes the quest lifecycle over REST.
type QuestHandler struct {
	svc    *quest.Service
	logger *zap.Logger
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(svc *quest.Service, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{svc: svc, logger: logger}
}

// List returns the user's active quests, newest first.
// GET /api/quests
func (h *QuestHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	quests, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// Create issues a quest from a random catalog draw.
// POST /api/quests
func (h *QuestHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)
	tpl, err := h.svc.Catalog().RandomByRarity()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog_empty"})
		return
	}
	inst, err := h.svc.Create(c.Request.Context(), userID, tpl)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quest": inst})
}

type progressRequest struct {
	Progress *int `json:"progress" binding:"required,min=0"`
}

// UpdateProgress sets an instance's progress.
// POST /api/quests/:id/progress
func (h *QuestHandler) UpdateProgress(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst, err := h.svc.UpdateProgress(c.Request.Context(), c.Param("id"), userID, *req.Progress)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": inst})
}

// Complete settles an instance's reward and tops the pool back up.
// POST /api/quests/:id/complete
func (h *QuestHandler) Complete(c *gin.Context) {
	userID := mw.GetUserID(c)
	result, err := h.svc.Complete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Replace discards an instance (no reward) and draws a replacement.
// POST /api/quests/:id/replace
func (h *QuestHandler) Replace(c *gin.Context) {
	userID := mw.GetUserID(c)
	inst, err := h.svc.Replace(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": inst})
}

// Delete removes an instance. No replenishment runs.
// DELETE /api/quests/:id
func (h *QuestHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	ok, err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Count returns the active count and the pool bound.
// GET /api/quests/count
func (h *QuestHandler) Count(c *gin.Context) {
	userID := mw.GetUserID(c)
	n, err := h.svc.CountActive(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n, "max": quest.PoolSize})
}

// Refill fills the pool up to its bound.
// POST /api/quests/refill
func (h *QuestHandler) Refill(c *gin.Context) {
	userID := mw.GetUserID(c)
	created, err := h.svc.Fill(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// fail maps engine errors to stable machine-readable codes. Expected
// rejections are 4xx; settlement failures are surfaced distinctly so
// the caller knows the reward was not credited.
func (h *QuestHandler) fail(c *gin.Context, err error) {
	var settleErr *quest.SettlementError
	switch {
	case errors.Is(err, quest.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, quest.ErrPoolFull):
		c.JSON(http.StatusBadRequest, gin.H{"error": "pool_full"})
	case errors.Is(err, quest.ErrIneligible):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ineligible"})
	case errors.Is(err, quest.ErrAlreadyTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "already_terminal"})
	case errors.As(err, &settleErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "settlement_failed",
			"quest_id": settleErr.QuestID,
		})
	default:
		h.logger.Error("quest store error",
			zap.String("trace_id", mw.GetTraceID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
	}
}
