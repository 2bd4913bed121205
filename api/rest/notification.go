package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/playrise/questengine/middleware"
	"github.com/playrise/questengine/model"
	"gorm.io/gorm"
)

// NotificationHandler handles in-app notification REST endpoints.
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List returns the user's most recent notifications.
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	var rows []model.Notification
	h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&rows)
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// MarkRead marks one notification as read.
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", 1)
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
