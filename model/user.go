package model

import "time"

// User represents a player account together with its wallet balances.
// Wallet columns are only ever mutated by delta updates (gorm.Expr),
// never read-modify-write.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Email        string     `gorm:"size:128" json:"email"`
	Status       int        `gorm:"default:1" json:"status"` // 0=banned 1=normal
	Balance      int64      `gorm:"default:0" json:"balance"`
	Coins        int64      `gorm:"default:0" json:"coins"`
	Energy       int64      `gorm:"default:0" json:"energy"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"last_login_ip"`
}
