package service

import (
	"context"
	"testing"

	"pms-backend/internal/model"
	"pms-backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLineItems(t *testing.T) {
	t.Run("drops rows with empty names and defaults the unit", func(t *testing.T) {
		items, err := validateLineItems([]LineItemPayload{
			{ItemName: "", Quantity: 5, UnitPrice: 1.0},
			{ItemName: "Paper", Quantity: 2, UnitPrice: 10.0},
			{ItemName: "Ink", Quantity: 1, Unit: "bottle", UnitPrice: 30.0},
		})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Paper", items[0].ItemName)
		assert.Equal(t, "pcs", items[0].Unit)
		assert.Equal(t, "bottle", items[1].Unit)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := validateLineItems([]LineItemPayload{
			{ItemName: "Paper", Quantity: -1, UnitPrice: 10.0},
		})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := validateLineItems([]LineItemPayload{
			{ItemName: "Paper", Quantity: 1, UnitPrice: -0.5},
		})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestCreatePurchaseRequest(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 4, Role: model.RoleRequester}

	detail := f.createPR(t, requester, "Office supplies", []LineItemPayload{
		{ItemName: "Paper", Quantity: 2, UnitPrice: 10.0},
		{ItemName: "Pens", Quantity: 1, UnitPrice: 5.0},
	})

	assert.Equal(t, model.PRStatusDraft, detail.Status)
	assert.Equal(t, 25.0, detail.Total)
	assert.Equal(t, requester.UserID, detail.CreatedBy)
	require.Len(t, detail.LineItems, 2)
	assert.Equal(t, 20.0, detail.LineItems[0].Subtotal)
	assert.Equal(t, 5.0, detail.LineItems[1].Subtotal)

	// Creation writes the initial balance snapshot.
	stored, err := f.balanceRepo.GetByPR(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stored.PRTotalAmount)
	assert.Equal(t, 25.0, stored.BalanceAmount)
}

func TestGetPurchaseRequestVisibility(t *testing.T) {
	f := newFixture()
	owner := Actor{UserID: 1, Role: model.RoleRequester}
	stranger := Actor{UserID: 2, Role: model.RoleRequester}
	approver := Actor{UserID: 3, Role: model.RoleApprover}
	ctx := context.Background()

	detail := f.createPR(t, owner, "Mine", nil)

	_, err := f.prs.Get(ctx, stranger, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))

	_, err = f.prs.Get(ctx, owner, detail.ID)
	assert.NoError(t, err)

	_, err = f.prs.Get(ctx, approver, detail.ID)
	assert.NoError(t, err)

	_, err = f.prs.Get(ctx, owner, 999)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListIsRoleScoped(t *testing.T) {
	f := newFixture()
	alice := Actor{UserID: 1, Role: model.RoleRequester}
	bob := Actor{UserID: 2, Role: model.RoleRequester}
	approver := Actor{UserID: 3, Role: model.RoleApprover}
	ctx := context.Background()

	f.createPR(t, alice, "Alice 1", nil)
	f.createPR(t, alice, "Alice 2", nil)
	f.createPR(t, bob, "Bob 1", nil)

	mine, total, err := f.prs.List(ctx, alice, 1, 20)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, int64(2), total)

	all, total, err := f.prs.List(ctx, approver, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)
}

func TestUpdateReplacesLineItemsWholesale(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 8, Role: model.RoleRequester}
	ctx := context.Background()

	detail := f.createPR(t, requester, "Original", []LineItemPayload{
		{ItemName: "A", Quantity: 1, UnitPrice: 1.0},
		{ItemName: "B", Quantity: 1, UnitPrice: 2.0},
		{ItemName: "C", Quantity: 1, UnitPrice: 3.0},
	})

	updated, err := f.prs.Update(ctx, requester, detail.ID, UpdatePurchaseRequestRequest{
		Title: "Revised",
		LineItems: []LineItemPayload{
			{ItemName: "X", Quantity: 2, UnitPrice: 10.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revised", updated.Title)
	require.Len(t, updated.LineItems, 1)
	assert.Equal(t, 20.0, updated.Total)

	// The old rows are gone from the store, not just hidden.
	items, err := f.lineRepo.ListByPR(ctx, detail.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	stored, err := f.balanceRepo.GetByPR(ctx, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.PRTotalAmount)
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	f := newFixture()
	owner := Actor{UserID: 1, Role: model.RoleRequester}
	stranger := Actor{UserID: 2, Role: model.RoleRequester}

	detail := f.createPR(t, owner, "Mine", nil)

	_, err := f.prs.Update(context.Background(), stranger, detail.ID, UpdatePurchaseRequestRequest{Title: "Hijacked"})
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))
}

func TestSubmitTransitions(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 5, Role: model.RoleRequester}
	stranger := Actor{UserID: 6, Role: model.RoleRequester}
	ctx := context.Background()

	detail := f.createPR(t, requester, "Draft", nil)

	_, err := f.prs.Submit(ctx, stranger, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))

	pr, err := f.prs.Submit(ctx, requester, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PRStatusPending, pr.Status)

	// A second submit hits the status guard.
	_, err = f.prs.Submit(ctx, requester, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestDecide(t *testing.T) {
	newPending := func(t *testing.T, f *fixture, requester Actor) uint {
		detail := f.createPR(t, requester, "Pending", nil)
		if _, err := f.prs.Submit(context.Background(), requester, detail.ID); err != nil {
			t.Fatalf("submit: %v", err)
		}
		return detail.ID
	}

	t.Run("requester may not decide", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		id := newPending(t, f, requester)

		_, err := f.prs.Decide(context.Background(), requester, id, DecidePurchaseRequestRequest{Action: model.ActionApprove})
		require.Error(t, err)
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("unknown action is rejected and leaves no log", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		approver := Actor{UserID: 2, Role: model.RoleApprover}
		id := newPending(t, f, requester)

		_, err := f.prs.Decide(context.Background(), approver, id, DecidePurchaseRequestRequest{Action: "banana"})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))

		logs, err := f.logRepo.ListByPR(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("approve moves to approved and appends a log row", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		approver := Actor{UserID: 2, Role: model.RoleApprover}
		id := newPending(t, f, requester)

		pr, err := f.prs.Decide(context.Background(), approver, id, DecidePurchaseRequestRequest{Action: model.ActionApprove, Comment: "ok"})
		require.NoError(t, err)
		assert.Equal(t, model.PRStatusApproved, pr.Status)

		logs, err := f.logRepo.ListByPR(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, model.ActionApprove, logs[0].Action)
		assert.Equal(t, approver.UserID, logs[0].UserID)
		assert.Equal(t, "ok", logs[0].Comment)

		// Deciding twice conflicts; the log stays single.
		_, err = f.prs.Decide(context.Background(), approver, id, DecidePurchaseRequestRequest{Action: model.ActionReject})
		require.Error(t, err)
		assert.True(t, apperr.IsConflict(err))

		logs, _ = f.logRepo.ListByPR(context.Background(), id)
		assert.Len(t, logs, 1)
	})

	t.Run("reject moves to rejected", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		admin := Actor{UserID: 2, Role: model.RoleAdmin}
		id := newPending(t, f, requester)

		pr, err := f.prs.Decide(context.Background(), admin, id, DecidePurchaseRequestRequest{Action: model.ActionReject, Comment: "over budget"})
		require.NoError(t, err)
		assert.Equal(t, model.PRStatusRejected, pr.Status)
	})

	t.Run("draft cannot be decided", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		approver := Actor{UserID: 2, Role: model.RoleApprover}
		detail := f.createPR(t, requester, "Still draft", nil)

		_, err := f.prs.Decide(context.Background(), approver, detail.ID, DecidePurchaseRequestRequest{Action: model.ActionApprove})
		require.Error(t, err)
		assert.True(t, apperr.IsConflict(err))
	})
}

func TestDeletePurchaseRequest(t *testing.T) {
	t.Run("admin only", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		detail := f.createPR(t, requester, "Mine", nil)

		err := f.prs.Delete(context.Background(), requester, detail.ID)
		require.Error(t, err)
		assert.True(t, apperr.IsForbidden(err))
	})

	t.Run("blocked while purchase orders exist", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		approver := Actor{UserID: 2, Role: model.RoleApprover}
		admin := Actor{UserID: 3, Role: model.RoleAdmin}
		ctx := context.Background()

		detail := f.createPR(t, requester, "Quoted", []LineItemPayload{
			{ItemName: "A", Quantity: 1, UnitPrice: 10.0},
		})
		_, err := f.prs.Submit(ctx, requester, detail.ID)
		require.NoError(t, err)
		_, err = f.prs.Decide(ctx, approver, detail.ID, DecidePurchaseRequestRequest{Action: model.ActionApprove})
		require.NoError(t, err)
		_, err = f.pos.CreateForPR(ctx, approver, detail.ID, CreatePurchaseOrdersRequest{
			Selections: []PurchaseOrderSelection{
				{LineItemID: detail.LineItems[0].ID, SupplierName: "Acme", QuotationPrice: 9.0},
			},
		})
		require.NoError(t, err)

		err = f.prs.Delete(ctx, admin, detail.ID)
		require.Error(t, err)
		assert.True(t, apperr.IsConflict(err))
	})

	t.Run("cascades line items and balance", func(t *testing.T) {
		f := newFixture()
		requester := Actor{UserID: 1, Role: model.RoleRequester}
		admin := Actor{UserID: 2, Role: model.RoleAdmin}
		ctx := context.Background()

		detail := f.createPR(t, requester, "Gone soon", []LineItemPayload{
			{ItemName: "A", Quantity: 1, UnitPrice: 10.0},
		})

		require.NoError(t, f.prs.Delete(ctx, admin, detail.ID))

		_, err := f.prRepo.GetByID(ctx, detail.ID)
		assert.Error(t, err)
		items, _ := f.lineRepo.ListByPR(ctx, detail.ID)
		assert.Empty(t, items)
		_, err = f.balanceRepo.GetByPR(ctx, detail.ID)
		assert.Error(t, err)
	})
}

func TestApprovalHistory(t *testing.T) {
	f := newFixture()
	requester := Actor{UserID: 1, Role: model.RoleRequester}
	approver := Actor{UserID: 2, Role: model.RoleApprover}
	stranger := Actor{UserID: 3, Role: model.RoleRequester}
	ctx := context.Background()

	detail := f.createPR(t, requester, "Audited", nil)
	_, err := f.prs.Submit(ctx, requester, detail.ID)
	require.NoError(t, err)
	_, err = f.prs.Decide(ctx, approver, detail.ID, DecidePurchaseRequestRequest{Action: model.ActionApprove})
	require.NoError(t, err)

	_, err = f.prs.ApprovalHistory(ctx, stranger, detail.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsForbidden(err))

	logs, err := f.prs.ApprovalHistory(ctx, requester, detail.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionApprove, logs[0].Action)
}
