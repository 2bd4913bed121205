package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playrise/questengine/audit"
	"github.com/playrise/questengine/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PoolSize is the maximum number of simultaneously active quests per user.
const PoolSize = 3

// Wallet is the collaborator that settles parsed reward operations.
// Calls are not assumed idempotent; at-most-once per settlement is this
// package's responsibility.
type Wallet interface {
	AddCurrency(ctx context.Context, userID int64, delta int64) error
	AddCoins(ctx context.Context, userID int64, delta int64) error
	AddEnergy(ctx context.Context, userID int64, delta int64) error
}

// Notifier delivers best-effort notifications; failures never surface.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string, payload map[string]interface{})
}

// Auditor records quest transitions and settlement outcomes.
type Auditor interface {
	Log(entry audit.Entry)
}

// Instance is a quest row annotated with read-time derived fields.
type Instance struct {
	model.Quest
	// TimeRemainingS is seconds until expiry, 0 when the quest never expires.
	TimeRemainingS int64 `json:"time_remaining_s"`
	// IsReadyToClaim is derived on read, never stored: progress has
	// reached the target but the reward has not been claimed yet.
	IsReadyToClaim bool `json:"is_ready_to_claim"`
}

// CompleteResult is the outcome of a successful completion.
type CompleteResult struct {
	Settled     *Instance   `json:"settled"`
	Replacement []*Instance `json:"replacement,omitempty"`
}

// Service owns the quest lifecycle: issue, track, expire, replenish,
// reward. All durable state lives in the store; the only in-process
// mutable state is the per-user lock table.
type Service struct {
	db         *gorm.DB
	catalog    *Catalog
	gate       *Gate
	wallet     Wallet
	notifier   Notifier
	auditor    Auditor
	notifiable map[string]bool
	locks      *userLocks
	logger     *zap.Logger
}

// NewService creates a quest Service. notifier and auditor may be nil.
func NewService(db *gorm.DB, catalog *Catalog, w Wallet, n Notifier, a Auditor, notifiableTypes []string, logger *zap.Logger) *Service {
	notifiable := make(map[string]bool, len(notifiableTypes))
	for _, t := range notifiableTypes {
		notifiable[t] = true
	}
	return &Service{
		db:         db,
		catalog:    catalog,
		gate:       NewGate(db),
		wallet:     w,
		notifier:   n,
		auditor:    a,
		notifiable: notifiable,
		locks:      newUserLocks(),
		logger:     logger,
	}
}

// Catalog exposes the template catalog (read-only).
func (svc *Service) Catalog() *Catalog { return svc.catalog }

// List expires overdue instances, then returns the user's active
// quests, newest first, annotated with time remaining.
func (svc *Service) List(ctx context.Context, userID int64) ([]*Instance, error) {
	if err := svc.sweepUser(ctx, userID); err != nil {
		return nil, err
	}
	var rows []model.Quest
	err := svc.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.QuestStatusActive).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, 0, len(rows))
	for i := range rows {
		out = append(out, annotate(&rows[i], time.Now()))
	}
	return out, nil
}

// Create issues a new quest instance from the given template.
// Returns ErrPoolFull when the user already has PoolSize active quests
// and ErrIneligible when the eligibility gate rejects the type.
func (svc *Service) Create(ctx context.Context, userID int64, tpl *Template) (*Instance, error) {
	mu := svc.locks.lock(userID)
	defer mu.Unlock()
	return svc.createLocked(ctx, userID, tpl)
}

// createLocked is Create with the user's lock already held.
func (svc *Service) createLocked(ctx context.Context, userID int64, tpl *Template) (*Instance, error) {
	if err := svc.sweepUser(ctx, userID); err != nil {
		return nil, err
	}
	active, err := svc.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active >= PoolSize {
		return nil, ErrPoolFull
	}
	ok, err := svc.gate.CanIssue(ctx, userID, tpl.QuestType, tpl.CooldownMin, tpl.MaxPerDay)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIneligible
	}

	now := time.Now()
	q := &model.Quest{
		ID:             uuid.New().String(),
		UserID:         userID,
		QuestType:      tpl.QuestType,
		Title:          tpl.Title,
		Description:    tpl.Description,
		RewardType:     tpl.RewardType,
		RewardSpec:     tpl.RewardSpec,
		ProgressTarget: tpl.ProgressTarget,
		Status:         model.QuestStatusActive,
		Icon:           tpl.Icon,
		CreatedAt:      now,
	}
	if tpl.ExpiresInHours > 0 {
		exp := now.Add(time.Duration(tpl.ExpiresInHours) * time.Hour)
		q.ExpiresAt = &exp
	}
	if err := svc.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	svc.logger.Info("quest issued",
		zap.Int64("user_id", userID),
		zap.String("quest_id", q.ID),
		zap.String("quest_type", q.QuestType))

	if svc.notifier != nil && svc.notifiable[q.QuestType] {
		svc.notifier.Notify(ctx, userID, "New quest: "+q.Title, q.Description,
			map[string]interface{}{"quest_id": q.ID, "quest_type": q.QuestType})
	}
	return annotate(q, now), nil
}

// UpdateProgress sets the instance's progress, clamped to the target.
// Reaching the target never completes the quest: completion is an
// explicit, separate operation, so "ready to claim" stays distinct
// from "claimed".
func (svc *Service) UpdateProgress(ctx context.Context, questID string, userID int64, progress int) (*Instance, error) {
	if err := svc.sweepUser(ctx, userID); err != nil {
		return nil, err
	}
	q, err := svc.fetch(ctx, questID, userID)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestStatusActive {
		return nil, ErrAlreadyTerminal
	}
	if progress < 0 {
		progress = 0
	}
	if progress > q.ProgressTarget {
		progress = q.ProgressTarget
	}
	err = svc.db.WithContext(ctx).Model(q).Update("progress_current", progress).Error
	if err != nil {
		return nil, err
	}
	q.ProgressCurrent = progress
	return annotate(q, time.Now()), nil
}

// Complete transitions the instance to completed and settles its
// reward exactly once. The status write is conditioned on the row
// still being active, so a concurrent Complete on the same instance
// settles at most one of the calls. If settlement fails after the
// transition committed, the instance stays completed and a
// *SettlementError is returned for operator reconciliation; the
// settlement is never retried automatically.
func (svc *Service) Complete(ctx context.Context, questID string, userID int64) (*CompleteResult, error) {
	mu := svc.locks.lock(userID)
	defer mu.Unlock()

	if err := svc.sweepUser(ctx, userID); err != nil {
		return nil, err
	}
	q, err := svc.fetch(ctx, questID, userID)
	if err != nil {
		return nil, err
	}
	if q.Status != model.QuestStatusActive {
		return nil, ErrAlreadyTerminal
	}

	now := time.Now()
	res := svc.db.WithContext(ctx).Model(&model.Quest{}).
		Where("id = ? AND user_id = ? AND status = ?", questID, userID, model.QuestStatusActive).
		Updates(map[string]interface{}{
			"status":           model.QuestStatusCompleted,
			"completed_at":     now,
			"progress_current": q.ProgressTarget,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: another call already terminated this instance.
		return nil, ErrAlreadyTerminal
	}
	q.Status = model.QuestStatusCompleted
	q.CompletedAt = &now
	q.ProgressCurrent = q.ProgressTarget

	if err := svc.settle(ctx, q); err != nil {
		return nil, err
	}

	result := &CompleteResult{Settled: annotate(q, now)}
	refilled, err := svc.fillLocked(ctx, userID)
	if err != nil {
		svc.logger.Warn("replenishment after completion failed",
			zap.Int64("user_id", userID), zap.Error(err))
	} else {
		result.Replacement = refilled
	}
	return result, nil
}

// settle applies the parsed reward operations to the wallet. The
// status transition has already committed when this runs.
func (svc *Service) settle(ctx context.Context, q *model.Quest) error {
	ops := ParseReward(q.RewardType, q.RewardSpec)
	for _, op := range ops {
		var err error
		switch op.Kind {
		case RewardCurrency:
			err = svc.wallet.AddCurrency(ctx, q.UserID, op.Amount)
		case RewardCoins:
			err = svc.wallet.AddCoins(ctx, q.UserID, op.Amount)
		case RewardEnergy:
			err = svc.wallet.AddEnergy(ctx, q.UserID, op.Amount)
		}
		if err != nil {
			svc.logger.Error("reward settlement failed",
				zap.String("quest_id", q.ID),
				zap.Int64("user_id", q.UserID),
				zap.String("kind", string(op.Kind)),
				zap.Int64("amount", op.Amount),
				zap.Error(err))
			if svc.auditor != nil {
				svc.auditor.Log(audit.Entry{
					UserID:      &q.UserID,
					QuestID:     q.ID,
					Action:      "quest_settlement_failed",
					Request:     map[string]interface{}{"kind": op.Kind, "amount": op.Amount},
					SettleError: err.Error(),
				})
			}
			return &SettlementError{QuestID: q.ID, Err: err}
		}
	}
	if svc.auditor != nil {
		action := "quest_complete"
		if q.RewardType == model.RewardTypeWheel {
			// No magnitude settles here; the external prize wheel picks
			// this marker up.
			action = "quest_complete_wheel"
		}
		svc.auditor.Log(audit.Entry{
			UserID:   &q.UserID,
			QuestID:  q.ID,
			Action:   action,
			Response: ops,
		})
	}
	return nil
}

// Resettle re-applies the reward of a completed instance. Intended for
// operator reconciliation after a settlement failure was reported; the
// caller is responsible for verifying the original settlement did not
// go through.
func (svc *Service) Resettle(ctx context.Context, questID string) error {
	var q model.Quest
	err := svc.db.WithContext(ctx).First(&q, "id = ?", questID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if q.Status != model.QuestStatusCompleted {
		return fmt.Errorf("quest: %s is not completed", questID)
	}
	return svc.settle(ctx, &q)
}

// Replace deletes the instance unconditionally (no reward) and
// attempts a single replenishment draw. The new instance may be nil
// when no eligible template was found.
func (svc *Service) Replace(ctx context.Context, questID string, userID int64) (*Instance, error) {
	mu := svc.locks.lock(userID)
	defer mu.Unlock()

	res := svc.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", questID, userID).
		Delete(&model.Quest{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return svc.fillSlotLocked(ctx, userID)
}

// Delete removes the instance unconditionally. No replenishment runs;
// the caller decides whether to refill.
func (svc *Service) Delete(ctx context.Context, questID string, userID int64) (bool, error) {
	res := svc.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", questID, userID).
		Delete(&model.Quest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountActive returns the number of active quests for the user.
func (svc *Service) CountActive(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := svc.db.WithContext(ctx).Model(&model.Quest{}).
		Where("user_id = ? AND status = ?", userID, model.QuestStatusActive).
		Count(&n).Error
	return n, err
}

// fetch loads one quest owned by the user.
func (svc *Service) fetch(ctx context.Context, questID string, userID int64) (*model.Quest, error) {
	var q model.Quest
	err := svc.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", questID, userID).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// sweepUser expires the user's overdue actives in one bulk update.
// It runs at the start of every read or mutation, so staleness is
// bounded by call frequency, not wall clock.
func (svc *Service) sweepUser(ctx context.Context, userID int64) error {
	return svc.db.WithContext(ctx).Model(&model.Quest{}).
		Where("user_id = ? AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			userID, model.QuestStatusActive, time.Now()).
		Update("status", model.QuestStatusExpired).Error
}

// SweepExpired expires overdue actives across all users. Used by the
// optional background ticker; correctness never depends on it.
func (svc *Service) SweepExpired(ctx context.Context) (int64, error) {
	res := svc.db.WithContext(ctx).Model(&model.Quest{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			model.QuestStatusActive, time.Now()).
		Update("status", model.QuestStatusExpired)
	return res.RowsAffected, res.Error
}

func annotate(q *model.Quest, now time.Time) *Instance {
	inst := &Instance{Quest: *q}
	if q.ExpiresAt != nil {
		remaining := int64(q.ExpiresAt.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		inst.TimeRemainingS = remaining
	}
	inst.IsReadyToClaim = q.Status == model.QuestStatusActive && q.ProgressCurrent >= q.ProgressTarget
	return inst
}
