package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an in-app message shown to the user.
// Delivery is best-effort: the quest engine never fails an operation
// because a notification could not be written.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index:idx_notify_user;not null" json:"user_id"`
	Title     string         `gorm:"size:128" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Payload   datatypes.JSON `json:"payload"` // {"quest_id":"...","quest_type":"..."}
	Read      int            `gorm:"default:0" json:"read"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
