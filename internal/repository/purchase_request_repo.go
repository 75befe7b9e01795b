package repository

import (
	"context"

	"pms-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRequestRepository defines data access for purchase requests.
// GetByIDForUpdate takes a row lock; the workflow and the reconciliation
// engine go through it so concurrent writers to the same PR serialize.
type PurchaseRequestRepository interface {
	Create(ctx context.Context, pr *model.PurchaseRequest) error
	GetByID(ctx context.Context, id uint) (*model.PurchaseRequest, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseRequest, error)
	ListAll(ctx context.Context, page, limit int) ([]model.PurchaseRequest, int64, error)
	ListByCreator(ctx context.Context, userID uint, page, limit int) ([]model.PurchaseRequest, int64, error)
	ListIDs(ctx context.Context) ([]uint, error)
	Update(ctx context.Context, pr *model.PurchaseRequest) error
	Delete(ctx context.Context, id uint) error
}

type purchaseRequestRepository struct {
	db *gorm.DB
}

func NewPurchaseRequestRepository(db *gorm.DB) PurchaseRequestRepository {
	return &purchaseRequestRepository{db: db}
}

func (r *purchaseRequestRepository) Create(ctx context.Context, pr *model.PurchaseRequest) error {
	return GetDB(ctx, r.db).Create(pr).Error
}

func (r *purchaseRequestRepository) GetByID(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	var pr model.PurchaseRequest
	if err := GetDB(ctx, r.db).Preload("Creator").First(&pr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *purchaseRequestRepository) GetByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	var pr model.PurchaseRequest
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *purchaseRequestRepository) ListAll(ctx context.Context, page, limit int) ([]model.PurchaseRequest, int64, error) {
	return r.list(ctx, GetDB(ctx, r.db).Model(&model.PurchaseRequest{}), page, limit)
}

func (r *purchaseRequestRepository) ListByCreator(ctx context.Context, userID uint, page, limit int) ([]model.PurchaseRequest, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.PurchaseRequest{}).Where("created_by = ?", userID)
	return r.list(ctx, query, page, limit)
}

func (r *purchaseRequestRepository) list(ctx context.Context, query *gorm.DB, page, limit int) ([]model.PurchaseRequest, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prs []model.PurchaseRequest
	offset := (page - 1) * limit
	if err := query.
		Preload("Creator").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&prs).Error; err != nil {
		return nil, 0, err
	}

	return prs, total, nil
}

func (r *purchaseRequestRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := GetDB(ctx, r.db).Model(&model.PurchaseRequest{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *purchaseRequestRepository) Update(ctx context.Context, pr *model.PurchaseRequest) error {
	return GetDB(ctx, r.db).Save(pr).Error
}

func (r *purchaseRequestRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PurchaseRequest{}).Error
}
