package model

import "time"

// QuestStatus is the lifecycle state of a quest instance.
type QuestStatus = string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusCompleted QuestStatus = "completed"
	QuestStatusExpired   QuestStatus = "expired"
)

// Reward type tags. The tag selects which reward grammar branch applies
// to the instance's RewardSpec string.
const (
	RewardTypeMoney  = "money"
	RewardTypeCoins  = "coins"
	RewardTypeEnergy = "energy"
	RewardTypeMixed  = "mixed"
	RewardTypeWheel  = "wheel"
)

// Quest is one per-user quest instance. Completed and expired rows are
// terminal; deleted/replaced rows are removed entirely, never soft-deleted.
type Quest struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          int64      `gorm:"index:idx_quest_user_status,priority:1;index:idx_quest_user_type,priority:1;not null" json:"user_id"`
	QuestType       string     `gorm:"index:idx_quest_user_type,priority:2;size:64;not null" json:"quest_type"`
	Title           string     `gorm:"size:128" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	RewardType      string     `gorm:"size:16" json:"reward_type"`
	RewardSpec      string     `gorm:"size:64" json:"reward_spec"`
	ProgressCurrent int        `gorm:"default:0" json:"progress_current"`
	ProgressTarget  int        `gorm:"not null" json:"progress_target"`
	Status          string     `gorm:"index:idx_quest_user_status,priority:2;size:16;default:'active'" json:"status"`
	Icon            string     `gorm:"size:64" json:"icon"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	CompletedAt     *time.Time `gorm:"index:idx_quest_user_type,priority:3" json:"completed_at"`
}
