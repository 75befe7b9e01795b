package repository

import (
	"context"

	"pms-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceRepository defines data access for the derived Balance records.
type BalanceRepository interface {
	Upsert(ctx context.Context, balance *model.Balance) error
	GetByPR(ctx context.Context, prID uint) (*model.Balance, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Balance, error)
	DeleteByPR(ctx context.Context, prID uint) error
}

type balanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) BalanceRepository {
	return &balanceRepository{db: db}
}

// Upsert inserts the balance or, when a row for the PR already exists,
// updates only the three amount columns. ActivityName and UserID keep their
// creation-time values.
func (r *balanceRepository) Upsert(ctx context.Context, balance *model.Balance) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pr_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pr_total_amount", "po_total_amount", "balance_amount", "updated_at"}),
	}).Create(balance).Error
}

func (r *balanceRepository) GetByPR(ctx context.Context, prID uint) (*model.Balance, error) {
	var balance model.Balance
	if err := GetDB(ctx, r.db).First(&balance, "pr_id = ?", prID).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *balanceRepository) ListByUser(ctx context.Context, userID uint) ([]model.Balance, error) {
	var balances []model.Balance
	if err := GetDB(ctx, r.db).
		Where("user_id = ?", userID).
		Order("pr_id ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *balanceRepository) DeleteByPR(ctx context.Context, prID uint) error {
	return GetDB(ctx, r.db).Where("pr_id = ?", prID).Delete(&model.Balance{}).Error
}
