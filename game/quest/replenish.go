package quest

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// fillAttempts bounds the catalog draws per unfilled slot. A slot that
// exhausts its attempts is left empty: with cooldowns in play the
// catalog is expected to run dry sometimes, and that is not an error.
const fillAttempts = 10

// Fill tops the user's pool back up to PoolSize. It serves both the
// first-use bootstrap (zero instances) and steady-state top-up after a
// completion or replace. Returns the instances it managed to create.
func (svc *Service) Fill(ctx context.Context, userID int64) ([]*Instance, error) {
	mu := svc.locks.lock(userID)
	defer mu.Unlock()
	return svc.fillLocked(ctx, userID)
}

// fillLocked fills every open slot; the user's lock must be held.
func (svc *Service) fillLocked(ctx context.Context, userID int64) ([]*Instance, error) {
	active, err := svc.CountActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	var created []*Instance
	for deficit := PoolSize - active; deficit > 0; deficit-- {
		inst, err := svc.fillSlotLocked(ctx, userID)
		if err != nil {
			return created, err
		}
		if inst == nil {
			// Catalog exhausted for this user; later slots cannot do better.
			break
		}
		created = append(created, inst)
	}
	return created, nil
}

// fillSlotLocked attempts to fill one slot with up to fillAttempts
// rarity-weighted draws. Returns nil without error when no draw passed
// the eligibility gate.
func (svc *Service) fillSlotLocked(ctx context.Context, userID int64) (*Instance, error) {
	for attempt := 0; attempt < fillAttempts; attempt++ {
		tpl, err := svc.catalog.RandomByRarity()
		if err != nil {
			if errors.Is(err, ErrEmptyCatalog) {
				return nil, nil
			}
			return nil, err
		}
		inst, err := svc.createLocked(ctx, userID, tpl)
		if err == nil {
			return inst, nil
		}
		if errors.Is(err, ErrIneligible) {
			continue
		}
		if errors.Is(err, ErrPoolFull) {
			return nil, nil
		}
		return nil, err
	}
	svc.logger.Debug("replenishment slot left unfilled",
		zap.Int64("user_id", userID),
		zap.Int("attempts", fillAttempts))
	return nil, nil
}
