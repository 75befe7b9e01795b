package service

import (
	"context"
	"errors"
	"fmt"

	"pms-backend/internal/model"
	"pms-backend/internal/repository"
	"pms-backend/pkg/apperr"

	"gorm.io/gorm"
)

// --- DTOs ---

type CreateItemRequest struct {
	Name      string  `json:"name" binding:"required"`
	UnitPrice float64 `json:"unit_price"`
}

type UpdateItemRequest struct {
	Name      *string  `json:"name"`
	UnitPrice *float64 `json:"unit_price"`
}

type ItemResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
}

// --- Interface ---

// ItemService manages the loose item catalog. Line items copy catalog values
// at creation time; changes here never touch existing PRs.
type ItemService interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (ItemResponse, error)
	GetItems(ctx context.Context, page, limit int) ([]ItemResponse, int64, error)
	UpdateItem(ctx context.Context, id uint, req UpdateItemRequest) (ItemResponse, error)
	DeleteItem(ctx context.Context, id uint) error
}

type itemService struct {
	repo repository.ItemRepository
}

func NewItemService(repo repository.ItemRepository) ItemService {
	return &itemService{repo: repo}
}

// --- Implementation ---

func toItemResponse(item model.Item) ItemResponse {
	return ItemResponse{ID: item.ID, Name: item.Name, UnitPrice: item.UnitPrice}
}

func (s *itemService) CreateItem(ctx context.Context, req CreateItemRequest) (ItemResponse, error) {
	if req.UnitPrice < 0 {
		return ItemResponse{}, apperr.Validation("unit_price must not be negative")
	}

	item := model.Item{Name: req.Name, UnitPrice: req.UnitPrice}
	if err := s.repo.Create(ctx, &item); err != nil {
		return ItemResponse{}, fmt.Errorf("failed to create item: %w", err)
	}
	return toItemResponse(item), nil
}

func (s *itemService) GetItems(ctx context.Context, page, limit int) ([]ItemResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	items, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	result := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, toItemResponse(item))
	}
	return result, total, nil
}

func (s *itemService) UpdateItem(ctx context.Context, id uint, req UpdateItemRequest) (ItemResponse, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ItemResponse{}, apperr.NotFound("item %d not found", id)
		}
		return ItemResponse{}, fmt.Errorf("failed to load item: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return ItemResponse{}, apperr.Validation("name must not be empty")
		}
		item.Name = *req.Name
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return ItemResponse{}, apperr.Validation("unit_price must not be negative")
		}
		item.UnitPrice = *req.UnitPrice
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return ItemResponse{}, fmt.Errorf("failed to update item: %w", err)
	}
	return toItemResponse(*item), nil
}

func (s *itemService) DeleteItem(ctx context.Context, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("item %d not found", id)
		}
		return fmt.Errorf("failed to load item: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
