package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pms-backend/internal/model"
	"pms-backend/internal/repository"
	ws "pms-backend/internal/websocket"
	"pms-backend/pkg/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// listAllLimit bounds unpaginated internal reads (balance rollups).
const listAllLimit = 1000

// --- DTOs ---

type LineItemPayload struct {
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
}

type CreatePurchaseRequestRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	LineItems   []LineItemPayload `json:"line_items"`
}

type UpdatePurchaseRequestRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	LineItems   []LineItemPayload `json:"line_items"`
}

type DecidePurchaseRequestRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

type LineItemResponse struct {
	ID        uint    `json:"id"`
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type PurchaseRequestResponse struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Total       float64 `json:"total"`
	CreatedBy   uint    `json:"created_by"`
	CreatorName string  `json:"creator_name,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type PurchaseRequestDetailResponse struct {
	PurchaseRequestResponse
	LineItems []LineItemResponse `json:"line_items"`
}

type ApprovalLogResponse struct {
	ID        uint   `json:"id"`
	PRID      uint   `json:"pr_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Action    string `json:"action"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// --- Interface ---

// PurchaseRequestService owns the PR lifecycle: create in draft, wholesale
// line-item replacement on edit, submit, approve/reject, and guarded delete.
// Transitions run in one transaction with the PR row locked and trigger
// balance reconciliation before committing.
type PurchaseRequestService interface {
	Create(ctx context.Context, actor Actor, req CreatePurchaseRequestRequest) (PurchaseRequestDetailResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (PurchaseRequestDetailResponse, error)
	List(ctx context.Context, actor Actor, page, limit int) ([]PurchaseRequestResponse, int64, error)
	Update(ctx context.Context, actor Actor, id uint, req UpdatePurchaseRequestRequest) (PurchaseRequestDetailResponse, error)
	Submit(ctx context.Context, actor Actor, id uint) (PurchaseRequestResponse, error)
	Decide(ctx context.Context, actor Actor, id uint, req DecidePurchaseRequestRequest) (PurchaseRequestResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	ApprovalHistory(ctx context.Context, actor Actor, id uint) ([]ApprovalLogResponse, error)
}

type purchaseRequestService struct {
	prRepo     repository.PurchaseRequestRepository
	lineRepo   repository.LineItemRepository
	poRepo     repository.PurchaseOrderRepository
	logRepo    repository.ApprovalLogRepository
	balRepo    repository.BalanceRepository
	reconciler BalanceService
	txManager  repository.TransactionManager
	hub        *ws.Hub
}

func NewPurchaseRequestService(
	prRepo repository.PurchaseRequestRepository,
	lineRepo repository.LineItemRepository,
	poRepo repository.PurchaseOrderRepository,
	logRepo repository.ApprovalLogRepository,
	balRepo repository.BalanceRepository,
	reconciler BalanceService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) PurchaseRequestService {
	return &purchaseRequestService{
		prRepo:     prRepo,
		lineRepo:   lineRepo,
		poRepo:     poRepo,
		logRepo:    logRepo,
		balRepo:    balRepo,
		reconciler: reconciler,
		txManager:  txManager,
		hub:        hub,
	}
}

// --- Validation helpers ---

// validateLineItems rejects negative quantities and prices instead of
// coercing them. Rows with an empty item name are dropped.
func validateLineItems(payloads []LineItemPayload) ([]model.LineItem, error) {
	items := make([]model.LineItem, 0, len(payloads))
	for i, p := range payloads {
		if p.ItemName == "" {
			continue
		}
		if p.Quantity < 0 {
			return nil, apperr.Validation("line_items[%d]: quantity must not be negative", i)
		}
		if p.UnitPrice < 0 {
			return nil, apperr.Validation("line_items[%d]: unit_price must not be negative", i)
		}
		unit := p.Unit
		if unit == "" {
			unit = "pcs"
		}
		items = append(items, model.LineItem{
			ItemName:  p.ItemName,
			Quantity:  p.Quantity,
			Unit:      unit,
			UnitPrice: p.UnitPrice,
		})
	}
	return items, nil
}

func lineItemsTotal(items []model.LineItem) float64 {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(decimal.NewFromFloat(li.UnitPrice).Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	total, _ := sum.Float64()
	return total
}

func toLineItemResponse(li model.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:        li.ID,
		ItemName:  li.ItemName,
		Quantity:  li.Quantity,
		Unit:      li.Unit,
		UnitPrice: li.UnitPrice,
		Subtotal:  li.Subtotal(),
	}
}

func toPurchaseRequestResponse(pr model.PurchaseRequest) PurchaseRequestResponse {
	resp := PurchaseRequestResponse{
		ID:          pr.ID,
		Title:       pr.Title,
		Description: pr.Description,
		Status:      pr.Status,
		Total:       pr.Total,
		CreatedBy:   pr.CreatedBy,
		CreatedAt:   pr.CreatedAt.Format(time.RFC3339),
	}
	if pr.Creator != nil {
		resp.CreatorName = pr.Creator.Username
	}
	return resp
}

func (s *purchaseRequestService) loadDetail(ctx context.Context, pr *model.PurchaseRequest) (PurchaseRequestDetailResponse, error) {
	lineItems, err := s.lineRepo.ListByPR(ctx, pr.ID)
	if err != nil {
		return PurchaseRequestDetailResponse{}, fmt.Errorf("failed to load line items: %w", err)
	}
	detail := PurchaseRequestDetailResponse{PurchaseRequestResponse: toPurchaseRequestResponse(*pr)}
	for _, li := range lineItems {
		detail.LineItems = append(detail.LineItems, toLineItemResponse(li))
	}
	return detail, nil
}

func (s *purchaseRequestService) getPR(ctx context.Context, id uint) (*model.PurchaseRequest, error) {
	pr, err := s.prRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("purchase request %d not found", id)
		}
		return nil, fmt.Errorf("failed to load purchase request: %w", err)
	}
	return pr, nil
}

// --- Operations ---

func (s *purchaseRequestService) Create(ctx context.Context, actor Actor, req CreatePurchaseRequestRequest) (PurchaseRequestDetailResponse, error) {
	items, err := validateLineItems(req.LineItems)
	if err != nil {
		return PurchaseRequestDetailResponse{}, err
	}

	pr := model.PurchaseRequest{
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   actor.UserID,
		Status:      model.PRStatusDraft,
		Total:       lineItemsTotal(items),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.prRepo.Create(txCtx, &pr); createErr != nil {
			return fmt.Errorf("failed to create purchase request: %w", createErr)
		}
		if replaceErr := s.lineRepo.ReplaceForPR(txCtx, pr.ID, items); replaceErr != nil {
			return fmt.Errorf("failed to attach line items: %w", replaceErr)
		}
		if _, recErr := s.reconciler.ReconcileInTx(txCtx, pr.ID); recErr != nil {
			return recErr
		}
		return nil
	})
	if err != nil {
		return PurchaseRequestDetailResponse{}, err
	}

	return s.loadDetail(ctx, &pr)
}

func (s *purchaseRequestService) Get(ctx context.Context, actor Actor, id uint) (PurchaseRequestDetailResponse, error) {
	pr, err := s.getPR(ctx, id)
	if err != nil {
		return PurchaseRequestDetailResponse{}, err
	}
	if !actor.CanModerate() && actor.UserID != pr.CreatedBy {
		return PurchaseRequestDetailResponse{}, apperr.Forbidden("purchase request %d belongs to another requester", id)
	}
	return s.loadDetail(ctx, pr)
}

// List is role-scoped: admins and approvers see every PR, requesters only
// their own.
func (s *purchaseRequestService) List(ctx context.Context, actor Actor, page, limit int) ([]PurchaseRequestResponse, int64, error) {
	var (
		prs   []model.PurchaseRequest
		total int64
		err   error
	)
	if actor.CanModerate() {
		prs, total, err = s.prRepo.ListAll(ctx, page, limit)
	} else {
		prs, total, err = s.prRepo.ListByCreator(ctx, actor.UserID, page, limit)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase requests: %w", err)
	}

	result := make([]PurchaseRequestResponse, 0, len(prs))
	for _, pr := range prs {
		result = append(result, toPurchaseRequestResponse(pr))
	}
	return result, total, nil
}

// Update replaces the PR's line items wholesale and refreshes the cached
// total. Edits are allowed at any status for the creator and for
// approver/admin roles.
func (s *purchaseRequestService) Update(ctx context.Context, actor Actor, id uint, req UpdatePurchaseRequestRequest) (PurchaseRequestDetailResponse, error) {
	items, err := validateLineItems(req.LineItems)
	if err != nil {
		return PurchaseRequestDetailResponse{}, err
	}

	var pr *model.PurchaseRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		pr, txErr = s.prRepo.GetByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase request %d not found", id)
			}
			return fmt.Errorf("failed to load purchase request: %w", txErr)
		}

		if actor.UserID != pr.CreatedBy && !actor.CanModerate() {
			return apperr.Forbidden("only the creator, approvers, or admins may edit this purchase request")
		}

		pr.Title = req.Title
		pr.Description = req.Description
		pr.Total = lineItemsTotal(items)
		if updateErr := s.prRepo.Update(txCtx, pr); updateErr != nil {
			return fmt.Errorf("failed to update purchase request: %w", updateErr)
		}
		if replaceErr := s.lineRepo.ReplaceForPR(txCtx, id, items); replaceErr != nil {
			return fmt.Errorf("failed to replace line items: %w", replaceErr)
		}
		if _, recErr := s.reconciler.ReconcileInTx(txCtx, id); recErr != nil {
			return recErr
		}
		return nil
	})
	if err != nil {
		return PurchaseRequestDetailResponse{}, err
	}

	return s.loadDetail(ctx, pr)
}

// Submit moves a draft PR to pending. Only the creating requester may submit.
func (s *purchaseRequestService) Submit(ctx context.Context, actor Actor, id uint) (PurchaseRequestResponse, error) {
	var pr *model.PurchaseRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		pr, txErr = s.prRepo.GetByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase request %d not found", id)
			}
			return fmt.Errorf("failed to load purchase request: %w", txErr)
		}

		if pr.CreatedBy != actor.UserID || actor.Role != model.RoleRequester {
			return apperr.Forbidden("only the creating requester may submit this purchase request")
		}
		if pr.Status != model.PRStatusDraft {
			return apperr.Conflict("purchase request is already %s", pr.Status)
		}

		pr.Status = model.PRStatusPending
		if updateErr := s.prRepo.Update(txCtx, pr); updateErr != nil {
			return fmt.Errorf("failed to submit purchase request: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return PurchaseRequestResponse{}, err
	}

	s.notify("pr.submitted", pr, actor)
	return toPurchaseRequestResponse(*pr), nil
}

// Decide applies an approve or reject decision to a pending PR and appends
// the approval log row in the same transaction. Unknown actions are rejected
// outright and leave no log row.
func (s *purchaseRequestService) Decide(ctx context.Context, actor Actor, id uint, req DecidePurchaseRequestRequest) (PurchaseRequestResponse, error) {
	if !actor.CanModerate() {
		return PurchaseRequestResponse{}, apperr.Forbidden("only approvers and admins may decide purchase requests")
	}
	if req.Action != model.ActionApprove && req.Action != model.ActionReject {
		return PurchaseRequestResponse{}, apperr.Validation("action must be %q or %q", model.ActionApprove, model.ActionReject)
	}

	var pr *model.PurchaseRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		pr, txErr = s.prRepo.GetByIDForUpdate(txCtx, id)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase request %d not found", id)
			}
			return fmt.Errorf("failed to load purchase request: %w", txErr)
		}

		if pr.Status != model.PRStatusPending {
			return apperr.Conflict("purchase request is already %s", pr.Status)
		}

		if req.Action == model.ActionApprove {
			pr.Status = model.PRStatusApproved
		} else {
			pr.Status = model.PRStatusRejected
		}
		if updateErr := s.prRepo.Update(txCtx, pr); updateErr != nil {
			return fmt.Errorf("failed to update purchase request: %w", updateErr)
		}

		entry := model.ApprovalLog{
			PRID:    pr.ID,
			UserID:  actor.UserID,
			Action:  req.Action,
			Comment: req.Comment,
		}
		if logErr := s.logRepo.Create(txCtx, &entry); logErr != nil {
			return fmt.Errorf("failed to append approval log: %w", logErr)
		}
		return nil
	})
	if err != nil {
		return PurchaseRequestResponse{}, err
	}

	s.notify("pr."+pr.Status, pr, actor)
	return toPurchaseRequestResponse(*pr), nil
}

// Delete removes a PR, its line items, and its balance row. Admin only, and
// only when no purchase orders reference the PR.
func (s *purchaseRequestService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins may delete purchase requests")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.prRepo.GetByIDForUpdate(txCtx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("purchase request %d not found", id)
			}
			return fmt.Errorf("failed to load purchase request: %w", err)
		}

		count, err := s.poRepo.CountByPR(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count purchase orders: %w", err)
		}
		if count > 0 {
			return apperr.Conflict("purchase request %d has %d purchase orders; delete them first", id, count)
		}

		if err := s.lineRepo.DeleteByPR(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}
		if err := s.balRepo.DeleteByPR(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete balance: %w", err)
		}
		if err := s.prRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete purchase request: %w", err)
		}
		return nil
	})
}

func (s *purchaseRequestService) ApprovalHistory(ctx context.Context, actor Actor, id uint) ([]ApprovalLogResponse, error) {
	pr, err := s.getPR(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() && actor.UserID != pr.CreatedBy {
		return nil, apperr.Forbidden("purchase request %d belongs to another requester", id)
	}

	logs, err := s.logRepo.ListByPR(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval history: %w", err)
	}

	result := make([]ApprovalLogResponse, 0, len(logs))
	for _, l := range logs {
		entry := ApprovalLogResponse{
			ID:        l.ID,
			PRID:      l.PRID,
			UserID:    l.UserID,
			Action:    l.Action,
			Comment:   l.Comment,
			Timestamp: l.Timestamp.Format(time.RFC3339),
		}
		if l.User != nil {
			entry.Username = l.User.Username
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *purchaseRequestService) notify(event string, pr *model.PurchaseRequest, actor Actor) {
	if s.hub == nil || pr == nil {
		return
	}
	s.hub.BroadcastEvent(ws.Event{
		Event:   event,
		PRID:    pr.ID,
		Title:   pr.Title,
		Status:  pr.Status,
		ActorID: actor.UserID,
	})
}
