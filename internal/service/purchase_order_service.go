package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pms-backend/internal/model"
	"pms-backend/internal/repository"
	"pms-backend/pkg/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type PurchaseOrderSelection struct {
	LineItemID     uint    `json:"line_item_id" binding:"required"`
	SupplierID     *uint   `json:"supplier_id"`
	SupplierName   string  `json:"supplier_name"`
	BrandName      string  `json:"brand_name"`
	QuotationPrice float64 `json:"quotation_price"`
}

type CreatePurchaseOrdersRequest struct {
	Selections []PurchaseOrderSelection `json:"selections" binding:"required,min=1"`
}

type UpdatePurchaseOrderRequest struct {
	BrandName      *string  `json:"brand_name"`
	QuotationPrice *float64 `json:"quotation_price"`
}

type PurchaseOrderResponse struct {
	ID             uint    `json:"id"`
	PRID           uint    `json:"pr_id"`
	LineItemID     uint    `json:"line_item_id"`
	ItemName       string  `json:"item_name,omitempty"`
	Quantity       int     `json:"quantity"`
	SupplierID     *uint   `json:"supplier_id"`
	SupplierName   string  `json:"supplier_name"`
	BrandName      string  `json:"brand_name"`
	QuotationPrice float64 `json:"quotation_price"`
	LineTotal      float64 `json:"line_total"` // quotation_price x linked line item quantity
	CreatedAt      string  `json:"created_at"`
}

type SupplierGroup struct {
	SupplierName string                  `json:"supplier_name"`
	Orders       []PurchaseOrderResponse `json:"orders"`
	Subtotal     float64                 `json:"subtotal"`
}

type GroupedPurchaseOrdersResponse struct {
	PRID       uint            `json:"pr_id"`
	Groups     []SupplierGroup `json:"groups"`
	GrandTotal float64         `json:"grand_total"`
}

// --- Interface ---

// PurchaseOrderService creates and maintains POs against approved PRs. Every
// mutation reconciles the PR's balance inside the same transaction.
type PurchaseOrderService interface {
	CreateForPR(ctx context.Context, actor Actor, prID uint, req CreatePurchaseOrdersRequest) ([]PurchaseOrderResponse, error)
	Update(ctx context.Context, actor Actor, poID uint, req UpdatePurchaseOrderRequest) (PurchaseOrderResponse, error)
	Delete(ctx context.Context, actor Actor, poID uint) error
	ListByPRGrouped(ctx context.Context, actor Actor, prID uint) (GroupedPurchaseOrdersResponse, error)
	ListPRsWithOrders(ctx context.Context, actor Actor) ([]PurchaseRequestResponse, error)
}

type purchaseOrderService struct {
	prRepo       repository.PurchaseRequestRepository
	lineRepo     repository.LineItemRepository
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	reconciler   BalanceService
	txManager    repository.TransactionManager
}

func NewPurchaseOrderService(
	prRepo repository.PurchaseRequestRepository,
	lineRepo repository.LineItemRepository,
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	reconciler BalanceService,
	txManager repository.TransactionManager,
) PurchaseOrderService {
	return &purchaseOrderService{
		prRepo:       prRepo,
		lineRepo:     lineRepo,
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		reconciler:   reconciler,
		txManager:    txManager,
	}
}

// --- Helpers ---

func toPurchaseOrderResponse(po model.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:             po.ID,
		PRID:           po.PRID,
		LineItemID:     po.LineItemID,
		SupplierID:     po.SupplierID,
		SupplierName:   po.SupplierName,
		BrandName:      po.BrandName,
		QuotationPrice: po.QuotationPrice,
		CreatedAt:      po.CreatedAt.Format(time.RFC3339),
	}
	if po.LineItem != nil {
		resp.ItemName = po.LineItem.ItemName
		resp.Quantity = po.LineItem.Quantity
		lineTotal := decimal.NewFromFloat(po.QuotationPrice).Mul(decimal.NewFromInt(int64(po.LineItem.Quantity)))
		resp.LineTotal, _ = lineTotal.Float64()
	}
	return resp
}

// resolveSupplier normalizes the supplier reference: an explicit id wins and
// its stored name is copied onto the PO; otherwise the free-text name is
// matched against stored suppliers so the PO gets a link when one exists.
func (s *purchaseOrderService) resolveSupplier(ctx context.Context, sel PurchaseOrderSelection) (*uint, string, error) {
	if sel.SupplierID != nil {
		supplier, err := s.supplierRepo.GetByID(ctx, *sel.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", apperr.NotFound("supplier %d not found", *sel.SupplierID)
			}
			return nil, "", fmt.Errorf("failed to load supplier: %w", err)
		}
		return &supplier.ID, supplier.Name, nil
	}

	if sel.SupplierName == "" {
		return nil, "", apperr.Validation("supplier_id or supplier_name is required")
	}

	supplier, err := s.supplierRepo.GetByName(ctx, sel.SupplierName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Free-text supplier name without a stored record stays unlinked.
			return nil, sel.SupplierName, nil
		}
		return nil, "", fmt.Errorf("failed to look up supplier: %w", err)
	}
	return &supplier.ID, supplier.Name, nil
}

// --- Operations ---

// CreateForPR creates one PO per (line item, supplier) selection. The PR must
// be approved. A selection referencing a line item that does not exist or
// does not belong to the PR fails the whole batch.
func (s *purchaseOrderService) CreateForPR(ctx context.Context, actor Actor, prID uint, req CreatePurchaseOrdersRequest) ([]PurchaseOrderResponse, error) {
	var created []model.PurchaseOrder

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		pr, err := s.prRepo.GetByIDForUpdate(txCtx, prID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase request %d not found", prID)
			}
			return fmt.Errorf("failed to load purchase request: %w", err)
		}

		if pr.Status != model.PRStatusApproved {
			return apperr.Conflict("purchase orders can only be created for approved purchase requests (status is %s)", pr.Status)
		}

		pos := make([]model.PurchaseOrder, 0, len(req.Selections))
		for i, sel := range req.Selections {
			if sel.QuotationPrice < 0 {
				return apperr.Validation("selections[%d]: quotation_price must not be negative", i)
			}

			lineItem, err := s.lineRepo.GetByID(txCtx, sel.LineItemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("line item %d not found", sel.LineItemID)
				}
				return fmt.Errorf("failed to load line item: %w", err)
			}
			if lineItem.PRID != prID {
				return apperr.Validation("selections[%d]: line item %d does not belong to purchase request %d", i, sel.LineItemID, prID)
			}

			supplierID, supplierName, err := s.resolveSupplier(txCtx, sel)
			if err != nil {
				return err
			}

			pos = append(pos, model.PurchaseOrder{
				PRID:           prID,
				LineItemID:     lineItem.ID,
				SupplierID:     supplierID,
				SupplierName:   supplierName,
				BrandName:      sel.BrandName,
				QuotationPrice: sel.QuotationPrice,
			})
		}

		if err := s.poRepo.CreateBatch(txCtx, pos); err != nil {
			return fmt.Errorf("failed to create purchase orders: %w", err)
		}
		created = pos

		if _, err := s.reconciler.ReconcileInTx(txCtx, prID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]PurchaseOrderResponse, 0, len(created))
	for _, po := range created {
		full, err := s.poRepo.GetByID(ctx, po.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload purchase order: %w", err)
		}
		result = append(result, toPurchaseOrderResponse(*full))
	}
	return result, nil
}

func (s *purchaseOrderService) Update(ctx context.Context, actor Actor, poID uint, req UpdatePurchaseOrderRequest) (PurchaseOrderResponse, error) {
	if req.QuotationPrice != nil && *req.QuotationPrice < 0 {
		return PurchaseOrderResponse{}, apperr.Validation("quotation_price must not be negative")
	}

	var po *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		po, txErr = s.poRepo.GetByID(txCtx, poID)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase order %d not found", poID)
			}
			return fmt.Errorf("failed to load purchase order: %w", txErr)
		}

		if req.BrandName != nil {
			po.BrandName = *req.BrandName
		}
		if req.QuotationPrice != nil {
			po.QuotationPrice = *req.QuotationPrice
		}
		if updateErr := s.poRepo.Update(txCtx, po); updateErr != nil {
			return fmt.Errorf("failed to update purchase order: %w", updateErr)
		}

		if _, recErr := s.reconciler.ReconcileInTx(txCtx, po.PRID); recErr != nil {
			return recErr
		}
		return nil
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	return toPurchaseOrderResponse(*po), nil
}

func (s *purchaseOrderService) Delete(ctx context.Context, actor Actor, poID uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.GetByID(txCtx, poID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase order %d not found", poID)
			}
			return fmt.Errorf("failed to load purchase order: %w", err)
		}

		if err := s.poRepo.Delete(txCtx, poID); err != nil {
			return fmt.Errorf("failed to delete purchase order: %w", err)
		}

		if _, err := s.reconciler.ReconcileInTx(txCtx, po.PRID); err != nil {
			return err
		}
		return nil
	})
}

// ListByPRGrouped groups the PR's POs by supplier name with per-supplier
// subtotals and a grand total. Quotation prices are per-unit everywhere:
// each PO contributes quotation_price x linked line item quantity, and a PO
// whose line item is gone contributes zero.
func (s *purchaseOrderService) ListByPRGrouped(ctx context.Context, actor Actor, prID uint) (GroupedPurchaseOrdersResponse, error) {
	pr, err := s.prRepo.GetByID(ctx, prID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GroupedPurchaseOrdersResponse{}, apperr.NotFound("purchase request %d not found", prID)
		}
		return GroupedPurchaseOrdersResponse{}, fmt.Errorf("failed to load purchase request: %w", err)
	}
	if !actor.CanModerate() && actor.UserID != pr.CreatedBy {
		return GroupedPurchaseOrdersResponse{}, apperr.Forbidden("purchase request %d belongs to another requester", prID)
	}

	orders, err := s.poRepo.ListByPR(ctx, prID)
	if err != nil {
		return GroupedPurchaseOrdersResponse{}, fmt.Errorf("failed to load purchase orders: %w", err)
	}

	return groupBySupplier(prID, orders), nil
}

// groupBySupplier preserves first-seen supplier order, matching the
// insertion-ordered listing the PO views render.
func groupBySupplier(prID uint, orders []model.PurchaseOrder) GroupedPurchaseOrdersResponse {
	resp := GroupedPurchaseOrdersResponse{PRID: prID}
	index := make(map[string]int)
	subtotals := make(map[string]decimal.Decimal)
	grand := decimal.Zero

	for _, po := range orders {
		lineTotal := decimal.Zero
		if po.LineItem != nil {
			lineTotal = decimal.NewFromFloat(po.QuotationPrice).Mul(decimal.NewFromInt(int64(po.LineItem.Quantity)))
		}

		i, ok := index[po.SupplierName]
		if !ok {
			i = len(resp.Groups)
			index[po.SupplierName] = i
			resp.Groups = append(resp.Groups, SupplierGroup{SupplierName: po.SupplierName})
			subtotals[po.SupplierName] = decimal.Zero
		}
		resp.Groups[i].Orders = append(resp.Groups[i].Orders, toPurchaseOrderResponse(po))
		subtotals[po.SupplierName] = subtotals[po.SupplierName].Add(lineTotal)
		grand = grand.Add(lineTotal)
	}

	for i := range resp.Groups {
		resp.Groups[i].Subtotal, _ = subtotals[resp.Groups[i].SupplierName].Float64()
	}
	resp.GrandTotal, _ = grand.Float64()
	return resp
}

// ListPRsWithOrders lists the PRs that have at least one PO, role-scoped
// like the PR listing.
func (s *purchaseOrderService) ListPRsWithOrders(ctx context.Context, actor Actor) ([]PurchaseRequestResponse, error) {
	var createdBy *uint
	if !actor.CanModerate() {
		createdBy = &actor.UserID
	}

	ids, err := s.poRepo.ListPRIDsWithPOs(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase requests with orders: %w", err)
	}

	result := make([]PurchaseRequestResponse, 0, len(ids))
	for _, id := range ids {
		pr, err := s.prRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load purchase request: %w", err)
		}
		result = append(result, toPurchaseRequestResponse(*pr))
	}
	return result, nil
}
