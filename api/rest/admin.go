package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playrise/questengine/audit"
	"github.com/playrise/questengine/game/quest"
	"github.com/playrise/questengine/model"
	"github.com/playrise/questengine/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	svc    *quest.Service
	audits *audit.Service
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, svc *quest.Service, audits *audit.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, svc: svc, audits: audits, sched: sched, logger: logger}
}

// AdminAuth gates a route group behind the static admin key.
// An empty configured key disables the group entirely.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" || c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Metrics returns store-level quest counts.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	counts := make(map[string]int64, 3)
	for _, status := range []string{
		model.QuestStatusActive, model.QuestStatusCompleted, model.QuestStatusExpired,
	} {
		var n int64
		h.db.Model(&model.Quest{}).Where("status = ?", status).Count(&n)
		counts[status] = n
	}
	var users int64
	h.db.Model(&model.User{}).Count(&users)
	c.JSON(http.StatusOK, gin.H{
		"quests":          counts,
		"users":           users,
		"catalog_size":    h.svc.Catalog().Len(),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// FailedSettlements lists settlements that failed after the status
// transition committed.
// GET /api/admin/settlements/failed
func (h *AdminHandler) FailedSettlements(c *gin.Context) {
	rows, err := h.audits.FailedSettlements(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failed": rows})
}

// Resettle re-applies the reward of a completed quest whose original
// settlement failed. Operator-triggered only; the engine never retries
// on its own.
// POST /api/admin/settlements/:quest_id/resettle
func (h *AdminHandler) Resettle(c *gin.Context) {
	questID := c.Param("quest_id")
	if err := h.svc.Resettle(c.Request.Context(), questID); err != nil {
		h.logger.Error("resettle failed", zap.String("quest_id", questID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "settlement_failed", "quest_id": questID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Sweep runs the global expiry sweep immediately.
// POST /api/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	n, err := h.svc.SweepExpired(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}
