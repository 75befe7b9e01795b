package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"pms-backend/internal/model"
	"pms-backend/internal/repository"
	"pms-backend/pkg/apperr"

	"gorm.io/gorm"
)

// --- DTOs ---

type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

type UpdateSupplierRequest struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Email   *string `json:"email"`
}

type SupplierResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type SupplierService interface {
	CreateSupplier(ctx context.Context, req CreateSupplierRequest) (SupplierResponse, error)
	GetSuppliers(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error)
	UpdateSupplier(ctx context.Context, id uint, req UpdateSupplierRequest) (SupplierResponse, error)
	DeleteSupplier(ctx context.Context, id uint) error
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

// --- Implementation ---

func toSupplierResponse(s model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Contact:   s.Contact,
		Email:     s.Email,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

func (s *supplierService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (SupplierResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return SupplierResponse{}, apperr.Validation("invalid email format")
		}
	}

	supplier := model.Supplier{
		Name:    req.Name,
		Contact: req.Contact,
		Email:   req.Email,
	}
	if err := s.repo.Create(ctx, &supplier); err != nil {
		return SupplierResponse{}, fmt.Errorf("failed to create supplier: %w", err)
	}
	return toSupplierResponse(supplier), nil
}

func (s *supplierService) GetSuppliers(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	suppliers, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}

	result := make([]SupplierResponse, 0, len(suppliers))
	for _, supplier := range suppliers {
		result = append(result, toSupplierResponse(supplier))
	}
	return result, total, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id uint, req UpdateSupplierRequest) (SupplierResponse, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SupplierResponse{}, apperr.NotFound("supplier %d not found", id)
		}
		return SupplierResponse{}, fmt.Errorf("failed to load supplier: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return SupplierResponse{}, apperr.Validation("name must not be empty")
		}
		supplier.Name = *req.Name
	}
	if req.Contact != nil {
		supplier.Contact = *req.Contact
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return SupplierResponse{}, apperr.Validation("invalid email format")
			}
		}
		supplier.Email = *req.Email
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return SupplierResponse{}, fmt.Errorf("failed to update supplier: %w", err)
	}
	return toSupplierResponse(*supplier), nil
}

// DeleteSupplier removes the supplier record. Past POs keep working: they
// carry the denormalized supplier name and a nullable reference.
func (s *supplierService) DeleteSupplier(ctx context.Context, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("supplier %d not found", id)
		}
		return fmt.Errorf("failed to load supplier: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
