package wallet

import (
	"context"
	"errors"

	"github.com/playrise/questengine/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when a delta targets a missing user row.
var ErrUserNotFound = errors.New("wallet: user not found")

// Service applies balance deltas to the persisted user wallet.
// Every mutation is a single delta UPDATE; callers own at-most-once
// semantics for settlements.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a wallet Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// AddCurrency adds delta to the user's main balance.
func (svc *Service) AddCurrency(ctx context.Context, userID int64, delta int64) error {
	return svc.addColumn(ctx, userID, "balance", delta)
}

// AddCoins adds delta to the user's coin balance.
func (svc *Service) AddCoins(ctx context.Context, userID int64, delta int64) error {
	return svc.addColumn(ctx, userID, "coins", delta)
}

// AddEnergy adds delta to the user's resource points.
func (svc *Service) AddEnergy(ctx context.Context, userID int64, delta int64) error {
	return svc.addColumn(ctx, userID, "energy", delta)
}

func (svc *Service) addColumn(ctx context.Context, userID int64, column string, delta int64) error {
	res := svc.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	svc.logger.Debug("wallet delta applied",
		zap.Int64("user_id", userID),
		zap.String("column", column),
		zap.Int64("delta", delta))
	return nil
}

// Balances returns the user's current wallet state.
func (svc *Service) Balances(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	if err := svc.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
