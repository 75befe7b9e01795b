package service

import (
	"context"
	"fmt"
	"testing"

	"pms-backend/internal/model"
	"pms-backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name      string
		lineItems []model.LineItem
		orders    []model.PurchaseOrder
		wantPR    float64
		wantPO    float64
		wantBal   float64
	}{
		{
			name: "empty",
		},
		{
			name: "line items only",
			lineItems: []model.LineItem{
				{Quantity: 2, UnitPrice: 10.0},
				{Quantity: 1, UnitPrice: 5.0},
			},
			wantPR:  25.0,
			wantBal: 25.0,
		},
		{
			name: "line items and quotations",
			lineItems: []model.LineItem{
				{ID: 1, Quantity: 2, UnitPrice: 10.0},
				{ID: 2, Quantity: 1, UnitPrice: 5.0},
			},
			orders: []model.PurchaseOrder{
				{LineItem: &model.LineItem{ID: 1, Quantity: 2}, QuotationPrice: 9.0},
				{LineItem: &model.LineItem{ID: 2, Quantity: 1}, QuotationPrice: 6.0},
			},
			wantPR:  25.0,
			wantPO:  24.0,
			wantBal: 1.0,
		},
		{
			name: "order without line item contributes zero",
			lineItems: []model.LineItem{
				{ID: 1, Quantity: 3, UnitPrice: 4.0},
			},
			orders: []model.PurchaseOrder{
				{LineItem: nil, QuotationPrice: 100.0},
			},
			wantPR:  12.0,
			wantBal: 12.0,
		},
		{
			name: "fractional prices stay exact",
			lineItems: []model.LineItem{
				{Quantity: 3, UnitPrice: 0.1},
			},
			orders: []model.PurchaseOrder{
				{LineItem: &model.LineItem{Quantity: 3}, QuotationPrice: 0.1},
			},
			wantPR:  0.3,
			wantPO:  0.3,
			wantBal: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prTotal, poTotal, balance := computeTotals(tt.lineItems, tt.orders)
			assert.Equal(t, tt.wantPR, prTotal)
			assert.Equal(t, tt.wantPO, poTotal)
			assert.Equal(t, tt.wantBal, balance)
		})
	}
}

func TestReconcileMissingPR(t *testing.T) {
	f := newFixture()

	_, err := f.balances.Reconcile(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestReconcileUpsertsBalance(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 7, Role: model.RoleRequester}

	detail := f.createPR(t, requester, "Office supplies", []LineItemPayload{
		{ItemName: "Paper", Quantity: 2, UnitPrice: 10.0},
		{ItemName: "Pens", Quantity: 1, UnitPrice: 5.0},
	})

	result, err := f.balances.Reconcile(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.PRTotal)
	assert.Equal(t, 0.0, result.POTotal)
	assert.Equal(t, 25.0, result.Balance)
	assert.Equal(t, "Office supplies", result.ActivityName)

	stored, err := f.balanceRepo.GetByPR(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stored.PRTotalAmount)
	assert.Equal(t, uint(7), stored.UserID)

	// Reconciling again must not change anything.
	again, err := f.balances.Reconcile(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestReconcileAfterQuotations(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 3, Role: model.RoleRequester}
	approver := Actor{UserID: 9, Role: model.RoleApprover}
	ctx := context.Background()

	detail := f.createPR(t, requester, "Lab equipment", []LineItemPayload{
		{ItemName: "Beakers", Quantity: 2, UnitPrice: 10.0},
		{ItemName: "Stands", Quantity: 1, UnitPrice: 5.0},
	})

	_, err := f.prs.Submit(ctx, requester, detail.ID)
	require.NoError(t, err)
	_, err = f.prs.Decide(ctx, approver, detail.ID, DecidePurchaseRequestRequest{Action: model.ActionApprove})
	require.NoError(t, err)

	_, err = f.pos.CreateForPR(ctx, approver, detail.ID, CreatePurchaseOrdersRequest{
		Selections: []PurchaseOrderSelection{
			{LineItemID: detail.LineItems[0].ID, SupplierName: "Acme", QuotationPrice: 9.0},
			{LineItemID: detail.LineItems[1].ID, SupplierName: "Acme", QuotationPrice: 6.0},
		},
	})
	require.NoError(t, err)

	result, err := f.balances.Reconcile(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.PRTotal)
	assert.Equal(t, 24.0, result.POTotal)
	assert.Equal(t, 1.0, result.Balance)
}

func TestReconcileAllSkipsNothingWhenAllExist(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 1, Role: model.RoleRequester}

	f.createPR(t, requester, "First", []LineItemPayload{{ItemName: "A", Quantity: 1, UnitPrice: 1.0}})
	f.createPR(t, requester, "Second", []LineItemPayload{{ItemName: "B", Quantity: 2, UnitPrice: 2.0}})

	count, err := f.balances.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetUserBalancesAccess(t *testing.T) {
	f := newFixture()
	owner := Actor{UserID: 5, Role: model.RoleRequester}
	stranger := Actor{UserID: 6, Role: model.RoleRequester}
	admin := Actor{UserID: 1, Role: model.RoleAdmin}
	ctx := context.Background()

	f.createPR(t, owner, "One", []LineItemPayload{{ItemName: "A", Quantity: 1, UnitPrice: 10.0}})
	f.createPR(t, owner, "Two", []LineItemPayload{{ItemName: "B", Quantity: 2, UnitPrice: 5.0}})

	_, err := f.balances.GetUserBalances(ctx, stranger, owner.UserID)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))

	own, err := f.balances.GetUserBalances(ctx, owner, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, own.Balances, 2)
	assert.Equal(t, 20.0, own.TotalPR)
	assert.Equal(t, 20.0, own.TotalBalance)

	viaAdmin, err := f.balances.GetUserBalances(ctx, admin, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, own.TotalPR, viaAdmin.TotalPR)
}

func TestGetUserBalancesReconcilesBeyondFirstPage(t *testing.T) {
	f := newFixture()
	owner := Actor{UserID: 5, Role: model.RoleRequester}
	ctx := context.Background()

	f.balances.(*balanceService).reconcilePageSize = 2

	ids := make([]uint, 0, 5)
	for i := 0; i < 5; i++ {
		detail := f.createPR(t, owner, fmt.Sprintf("Activity %d", i+1),
			[]LineItemPayload{{ItemName: "A", Quantity: 1, UnitPrice: 10.0}})
		ids = append(ids, detail.ID)
	}

	// Reprice the last PR's line item behind the service's back so its stored
	// balance goes stale. The rollup must refresh it, which means the
	// reconcile loop has to page past the first ListByCreator page.
	last := ids[len(ids)-1]
	for id, li := range f.lineRepo.rows {
		if li.PRID == last {
			li.UnitPrice = 99.0
			f.lineRepo.rows[id] = li
		}
	}

	resp, err := f.balances.GetUserBalances(ctx, owner, owner.UserID)
	require.NoError(t, err)
	require.Len(t, resp.Balances, 5)

	byPR := make(map[uint]BalanceResult, len(resp.Balances))
	for _, b := range resp.Balances {
		byPR[b.PRID] = b
	}
	assert.Equal(t, 99.0, byPR[last].PRTotal)
	assert.Equal(t, 10.0*4+99.0, resp.TotalPR)
}

func TestGetActivityBalanceAccess(t *testing.T) {
	f := newFixture()
	owner := Actor{UserID: 2, Role: model.RoleRequester}
	stranger := Actor{UserID: 3, Role: model.RoleRequester}
	ctx := context.Background()

	detail := f.createPR(t, owner, "Site works", []LineItemPayload{
		{ItemName: "Cement", Quantity: 4, UnitPrice: 25.0},
	})

	_, err := f.balances.GetActivityBalance(ctx, stranger, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))

	resp, err := f.balances.GetActivityBalance(ctx, owner, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, resp.PRTotal)
	assert.Len(t, resp.LineItems, 1)
	assert.Empty(t, resp.Orders)
}
