package repository

import (
	"context"

	"pms-backend/internal/model"

	"gorm.io/gorm"
)

// ApprovalLogRepository is append-only: rows are created and read, never
// updated or deleted.
type ApprovalLogRepository interface {
	Create(ctx context.Context, log *model.ApprovalLog) error
	ListByPR(ctx context.Context, prID uint) ([]model.ApprovalLog, error)
}

type approvalLogRepository struct {
	db *gorm.DB
}

func NewApprovalLogRepository(db *gorm.DB) ApprovalLogRepository {
	return &approvalLogRepository{db: db}
}

func (r *approvalLogRepository) Create(ctx context.Context, log *model.ApprovalLog) error {
	return GetDB(ctx, r.db).Create(log).Error
}

func (r *approvalLogRepository) ListByPR(ctx context.Context, prID uint) ([]model.ApprovalLog, error) {
	var logs []model.ApprovalLog
	if err := GetDB(ctx, r.db).
		Preload("User").
		Where("pr_id = ?", prID).
		Order("timestamp ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
