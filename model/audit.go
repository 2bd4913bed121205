package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records quest transitions and reward settlements.
// Failed settlements are written here with SettleError set so an
// operator reconciliation job can find and re-settle them.
type AuditLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:36;not null" json:"trace_id"`
	UserID      *int64         `gorm:"index:idx_audit_user" json:"user_id"`
	QuestID     string         `gorm:"index:idx_audit_quest;size:36" json:"quest_id"`
	Action      string         `gorm:"size:64;not null" json:"action"`
	Request     datatypes.JSON `json:"request"`
	Response    datatypes.JSON `json:"response"`
	SettleError string         `gorm:"type:text" json:"settle_error"`
	IP          string         `gorm:"size:45" json:"ip"`
	DurationMs  int            `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
