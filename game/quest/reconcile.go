package quest

import (
	"context"

	"github.com/playrise/questengine/model"
	"go.uber.org/zap"
)

// Reconcile trims any user whose active count drifted above PoolSize,
// deleting excess instances oldest first. The per-user lock already
// prevents this in-process; reconciliation is a backstop for rows
// written by other processes or past bugs.
func (svc *Service) Reconcile(ctx context.Context) (int64, error) {
	type overfull struct {
		UserID int64
		Cnt    int64
	}
	var rows []overfull
	err := svc.db.WithContext(ctx).Model(&model.Quest{}).
		Select("user_id, count(*) as cnt").
		Where("status = ?", model.QuestStatusActive).
		Group("user_id").
		Having("count(*) > ?", PoolSize).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	var trimmed int64
	for _, row := range rows {
		mu := svc.locks.lock(row.UserID)

		var actives []model.Quest
		err := svc.db.WithContext(ctx).
			Where("user_id = ? AND status = ?", row.UserID, model.QuestStatusActive).
			Order("created_at ASC").
			Find(&actives).Error
		if err != nil {
			mu.Unlock()
			return trimmed, err
		}
		excess := len(actives) - PoolSize
		for i := 0; i < excess; i++ {
			res := svc.db.WithContext(ctx).
				Where("id = ?", actives[i].ID).
				Delete(&model.Quest{})
			if res.Error != nil {
				mu.Unlock()
				return trimmed, res.Error
			}
			trimmed += res.RowsAffected
		}
		mu.Unlock()
		if excess > 0 {
			svc.logger.Warn("trimmed excess active quests",
				zap.Int64("user_id", row.UserID),
				zap.Int("excess", excess))
		}
	}
	return trimmed, nil
}
