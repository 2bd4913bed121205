package quest

import (
	"context"
	"time"

	"github.com/playrise/questengine/model"
	"gorm.io/gorm"
)

// Gate decides whether a new quest of a given type may be issued to a
// user right now. Checks run in order; the first failing check wins.
type Gate struct {
	db *gorm.DB
}

// NewGate creates an eligibility Gate over the quest store.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// CanIssue reports whether a quest of questType may be issued to the user.
//
//  1. Duplicate check: an active instance of the same type always blocks,
//     regardless of cooldown configuration.
//  2. Cooldown check (cooldownMinutes > 0): blocks while any instance of
//     the type was completed within the window. Cooldown is measured
//     from completion, so instances that expired unfinished never count.
//  3. Daily cap check (maxPerDay > 0): blocks once maxPerDay completions
//     of the type have happened since the start of the calendar day.
func (g *Gate) CanIssue(ctx context.Context, userID int64, questType string, cooldownMinutes, maxPerDay int) (bool, error) {
	var active int64
	err := g.db.WithContext(ctx).Model(&model.Quest{}).
		Where("user_id = ? AND quest_type = ? AND status = ?", userID, questType, model.QuestStatusActive).
		Count(&active).Error
	if err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	now := time.Now()

	if cooldownMinutes > 0 {
		cutoff := now.Add(-time.Duration(cooldownMinutes) * time.Minute)
		var recent int64
		err := g.db.WithContext(ctx).Model(&model.Quest{}).
			Where("user_id = ? AND quest_type = ? AND completed_at >= ?", userID, questType, cutoff).
			Count(&recent).Error
		if err != nil {
			return false, err
		}
		if recent > 0 {
			return false, nil
		}
	}

	if maxPerDay > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		var today int64
		err := g.db.WithContext(ctx).Model(&model.Quest{}).
			Where("user_id = ? AND quest_type = ? AND completed_at >= ?", userID, questType, dayStart).
			Count(&today).Error
		if err != nil {
			return false, err
		}
		if today >= int64(maxPerDay) {
			return false, nil
		}
	}

	return true, nil
}
