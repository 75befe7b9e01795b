package repository

import (
	"context"

	"pms-backend/internal/model"

	"gorm.io/gorm"
)

// LineItemRepository defines data access for PR line items. Line items are
// only ever written as a whole set per PR.
type LineItemRepository interface {
	GetByID(ctx context.Context, id uint) (*model.LineItem, error)
	ListByPR(ctx context.Context, prID uint) ([]model.LineItem, error)
	ReplaceForPR(ctx context.Context, prID uint, items []model.LineItem) error
	DeleteByPR(ctx context.Context, prID uint) error
}

type lineItemRepository struct {
	db *gorm.DB
}

func NewLineItemRepository(db *gorm.DB) LineItemRepository {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) GetByID(ctx context.Context, id uint) (*model.LineItem, error) {
	var item model.LineItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *lineItemRepository) ListByPR(ctx context.Context, prID uint) ([]model.LineItem, error) {
	var items []model.LineItem
	if err := GetDB(ctx, r.db).Where("pr_id = ?", prID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceForPR deletes every line item of the PR and inserts the new set.
// No diffing; edits always rewrite the whole set.
func (r *lineItemRepository) ReplaceForPR(ctx context.Context, prID uint, items []model.LineItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("pr_id = ?", prID).Delete(&model.LineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].PRID = prID
	}
	return db.Create(&items).Error
}

func (r *lineItemRepository) DeleteByPR(ctx context.Context, prID uint) error {
	return GetDB(ctx, r.db).Where("pr_id = ?", prID).Delete(&model.LineItem{}).Error
}
