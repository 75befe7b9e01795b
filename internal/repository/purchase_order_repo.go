package repository

import (
	"context"

	"pms-backend/internal/model"

	"gorm.io/gorm"
)

// PurchaseOrderRepository defines data access for purchase orders.
type PurchaseOrderRepository interface {
	CreateBatch(ctx context.Context, pos []model.PurchaseOrder) error
	GetByID(ctx context.Context, id uint) (*model.PurchaseOrder, error)
	ListByPR(ctx context.Context, prID uint) ([]model.PurchaseOrder, error)
	CountByPR(ctx context.Context, prID uint) (int64, error)
	ListPRIDsWithPOs(ctx context.Context, createdBy *uint) ([]uint, error)
	Update(ctx context.Context, po *model.PurchaseOrder) error
	Delete(ctx context.Context, id uint) error
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) CreateBatch(ctx context.Context, pos []model.PurchaseOrder) error {
	if len(pos) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&pos).Error
}

func (r *purchaseOrderRepository) GetByID(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).Preload("LineItem").First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) ListByPR(ctx context.Context, prID uint) ([]model.PurchaseOrder, error) {
	var pos []model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("LineItem").
		Where("pr_id = ?", prID).
		Order("supplier_name ASC, id ASC").
		Find(&pos).Error; err != nil {
		return nil, err
	}
	return pos, nil
}

func (r *purchaseOrderRepository) CountByPR(ctx context.Context, prID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("pr_id = ?", prID).Count(&count).Error
	return count, err
}

// ListPRIDsWithPOs returns the distinct PR ids that have at least one PO,
// newest PR first, optionally restricted to a creator.
func (r *purchaseOrderRepository) ListPRIDsWithPOs(ctx context.Context, createdBy *uint) ([]uint, error) {
	query := GetDB(ctx, r.db).Table("purchase_orders").
		Select("DISTINCT purchase_orders.pr_id").
		Joins("JOIN purchase_requests ON purchase_requests.id = purchase_orders.pr_id")
	if createdBy != nil {
		query = query.Where("purchase_requests.created_by = ?", *createdBy)
	}

	var ids []uint
	if err := query.Pluck("purchase_orders.pr_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *purchaseOrderRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Save(po).Error
}

func (r *purchaseOrderRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}
