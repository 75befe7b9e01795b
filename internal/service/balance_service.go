package service

import (
	"context"
	"errors"
	"fmt"

	"pms-backend/internal/model"
	"pms-backend/internal/repository"
	"pms-backend/pkg/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type BalanceResult struct {
	PRID         uint    `json:"pr_id"`
	ActivityName string  `json:"activity_name"`
	PRTotal      float64 `json:"pr_total"`
	POTotal      float64 `json:"po_total"`
	Balance      float64 `json:"balance"`
}

type UserBalancesResponse struct {
	UserID       uint            `json:"user_id"`
	Balances     []BalanceResult `json:"balances"`
	TotalPR      float64         `json:"total_pr"`
	TotalPO      float64         `json:"total_po"`
	TotalBalance float64         `json:"total_balance"`
}

type ActivityBalanceResponse struct {
	PR        PurchaseRequestResponse `json:"pr"`
	LineItems []LineItemResponse      `json:"line_items"`
	Orders    []PurchaseOrderResponse `json:"purchase_orders"`
	PRTotal   float64                 `json:"pr_total"`
	POTotal   float64                 `json:"po_total"`
	Balance   float64                 `json:"balance"`
}

// --- Interface ---

// BalanceService is the reconciliation engine. Reconcile recomputes the PR
// total from line items, the PO total from quotations times linked line-item
// quantities, and upserts the Balance row keyed by pr_id. The result depends
// only on the current line-item/PO state, so reconciliation is idempotent.
type BalanceService interface {
	Reconcile(ctx context.Context, prID uint) (BalanceResult, error)
	ReconcileAll(ctx context.Context) (int, error)
	GetUserBalances(ctx context.Context, actor Actor, userID uint) (UserBalancesResponse, error)
	GetActivityBalance(ctx context.Context, actor Actor, prID uint) (ActivityBalanceResponse, error)

	// ReconcileInTx is Reconcile without the surrounding transaction; callers
	// must already hold a transaction (and the PR row lock comes with it).
	ReconcileInTx(txCtx context.Context, prID uint) (BalanceResult, error)
}

type balanceService struct {
	prRepo      repository.PurchaseRequestRepository
	lineRepo    repository.LineItemRepository
	poRepo      repository.PurchaseOrderRepository
	balanceRepo repository.BalanceRepository
	txManager   repository.TransactionManager

	// reconcilePageSize bounds each ListByCreator page in GetUserBalances;
	// the loop pages until the creator's PRs are exhausted.
	reconcilePageSize int
}

func NewBalanceService(
	prRepo repository.PurchaseRequestRepository,
	lineRepo repository.LineItemRepository,
	poRepo repository.PurchaseOrderRepository,
	balanceRepo repository.BalanceRepository,
	txManager repository.TransactionManager,
) BalanceService {
	return &balanceService{
		prRepo:            prRepo,
		lineRepo:          lineRepo,
		poRepo:            poRepo,
		balanceRepo:       balanceRepo,
		txManager:         txManager,
		reconcilePageSize: listAllLimit,
	}
}

// --- Computation ---

// computeTotals derives the three balance amounts from the current line-item
// and PO state. Sums run through decimal so repeated reconciliation of the
// same rows never drifts. A PO whose linked line item is gone contributes a
// quantity of zero.
func computeTotals(lineItems []model.LineItem, orders []model.PurchaseOrder) (prTotal, poTotal, balance float64) {
	pr := decimal.Zero
	for _, li := range lineItems {
		pr = pr.Add(decimal.NewFromFloat(li.UnitPrice).Mul(decimal.NewFromInt(int64(li.Quantity))))
	}

	po := decimal.Zero
	for _, o := range orders {
		qty := int64(0)
		if o.LineItem != nil {
			qty = int64(o.LineItem.Quantity)
		}
		po = po.Add(decimal.NewFromFloat(o.QuotationPrice).Mul(decimal.NewFromInt(qty)))
	}

	prTotal, _ = pr.Float64()
	poTotal, _ = po.Float64()
	balance, _ = pr.Sub(po).Float64()
	return prTotal, poTotal, balance
}

// --- Implementation ---

func (s *balanceService) Reconcile(ctx context.Context, prID uint) (BalanceResult, error) {
	var result BalanceResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		result, txErr = s.ReconcileInTx(txCtx, prID)
		return txErr
	})
	if err != nil {
		return BalanceResult{}, err
	}
	return result, nil
}

func (s *balanceService) ReconcileInTx(txCtx context.Context, prID uint) (BalanceResult, error) {
	// Lock the PR row so concurrent reconciliations and edits of the same PR
	// serialize.
	pr, err := s.prRepo.GetByIDForUpdate(txCtx, prID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceResult{}, apperr.NotFound("purchase request %d not found", prID)
		}
		return BalanceResult{}, fmt.Errorf("failed to load purchase request: %w", err)
	}

	lineItems, err := s.lineRepo.ListByPR(txCtx, prID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("failed to load line items: %w", err)
	}

	orders, err := s.poRepo.ListByPR(txCtx, prID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("failed to load purchase orders: %w", err)
	}

	prTotal, poTotal, balance := computeTotals(lineItems, orders)

	// Refresh the cached PR total; it is never trusted independently but the
	// API and the export surface it.
	if pr.Total != prTotal {
		pr.Total = prTotal
		if err := s.prRepo.Update(txCtx, pr); err != nil {
			return BalanceResult{}, fmt.Errorf("failed to refresh cached total: %w", err)
		}
	}

	bal := model.Balance{
		PRID:          prID,
		ActivityName:  pr.Title,
		PRTotalAmount: prTotal,
		POTotalAmount: poTotal,
		BalanceAmount: balance,
		UserID:        pr.CreatedBy,
	}
	if err := s.balanceRepo.Upsert(txCtx, &bal); err != nil {
		return BalanceResult{}, fmt.Errorf("failed to upsert balance: %w", err)
	}

	return BalanceResult{
		PRID:         prID,
		ActivityName: pr.Title,
		PRTotal:      prTotal,
		POTotal:      poTotal,
		Balance:      balance,
	}, nil
}

// ReconcileAll recomputes every PR's balance, one transaction per PR. PRs
// deleted while iterating are skipped.
func (s *balanceService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.prRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list purchase requests: %w", err)
	}

	count := 0
	for _, id := range ids {
		if _, err := s.Reconcile(ctx, id); err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *balanceService) GetUserBalances(ctx context.Context, actor Actor, userID uint) (UserBalancesResponse, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return UserBalancesResponse{}, apperr.Forbidden("balances of another user are admin-only")
	}

	// Balances are served consistent-as-of-last-write; reconcile every PR of
	// the user before reading, paging through the full set.
	for page := 1; ; page++ {
		prs, _, err := s.prRepo.ListByCreator(ctx, userID, page, s.reconcilePageSize)
		if err != nil {
			return UserBalancesResponse{}, fmt.Errorf("failed to list purchase requests: %w", err)
		}
		for _, pr := range prs {
			if _, err := s.Reconcile(ctx, pr.ID); err != nil && !apperr.IsNotFound(err) {
				return UserBalancesResponse{}, err
			}
		}
		if len(prs) < s.reconcilePageSize {
			break
		}
	}

	balances, err := s.balanceRepo.ListByUser(ctx, userID)
	if err != nil {
		return UserBalancesResponse{}, fmt.Errorf("failed to list balances: %w", err)
	}

	resp := UserBalancesResponse{UserID: userID, Balances: make([]BalanceResult, 0, len(balances))}
	totalPR, totalPO, totalBal := decimal.Zero, decimal.Zero, decimal.Zero
	for _, b := range balances {
		resp.Balances = append(resp.Balances, BalanceResult{
			PRID:         b.PRID,
			ActivityName: b.ActivityName,
			PRTotal:      b.PRTotalAmount,
			POTotal:      b.POTotalAmount,
			Balance:      b.BalanceAmount,
		})
		totalPR = totalPR.Add(decimal.NewFromFloat(b.PRTotalAmount))
		totalPO = totalPO.Add(decimal.NewFromFloat(b.POTotalAmount))
		totalBal = totalBal.Add(decimal.NewFromFloat(b.BalanceAmount))
	}
	resp.TotalPR, _ = totalPR.Float64()
	resp.TotalPO, _ = totalPO.Float64()
	resp.TotalBalance, _ = totalBal.Float64()
	return resp, nil
}

func (s *balanceService) GetActivityBalance(ctx context.Context, actor Actor, prID uint) (ActivityBalanceResponse, error) {
	pr, err := s.prRepo.GetByID(ctx, prID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ActivityBalanceResponse{}, apperr.NotFound("purchase request %d not found", prID)
		}
		return ActivityBalanceResponse{}, fmt.Errorf("failed to load purchase request: %w", err)
	}

	if !actor.IsAdmin() && actor.UserID != pr.CreatedBy {
		return ActivityBalanceResponse{}, apperr.Forbidden("activity balance is visible to the creator and admins only")
	}

	result, err := s.Reconcile(ctx, prID)
	if err != nil {
		return ActivityBalanceResponse{}, err
	}

	lineItems, err := s.lineRepo.ListByPR(ctx, prID)
	if err != nil {
		return ActivityBalanceResponse{}, fmt.Errorf("failed to load line items: %w", err)
	}
	orders, err := s.poRepo.ListByPR(ctx, prID)
	if err != nil {
		return ActivityBalanceResponse{}, fmt.Errorf("failed to load purchase orders: %w", err)
	}

	pr.Total = result.PRTotal
	resp := ActivityBalanceResponse{
		PR:      toPurchaseRequestResponse(*pr),
		PRTotal: result.PRTotal,
		POTotal: result.POTotal,
		Balance: result.Balance,
	}
	for _, li := range lineItems {
		resp.LineItems = append(resp.LineItems, toLineItemResponse(li))
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toPurchaseOrderResponse(o))
	}
	return resp, nil
}
