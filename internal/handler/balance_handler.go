package handler

import (
	"net/http"

	"pms-backend/internal/middleware"
	"pms-backend/internal/model"
	"pms-backend/internal/service"
	"pms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type BalanceHandler struct {
	balanceService service.BalanceService
}

// NewBalanceHandler sets up the routing dependencies for Balance endpoints
func NewBalanceHandler(balanceService service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *BalanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleRequester, model.RoleApprover, model.RoleAdmin)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	balances := router.Group("/balances")
	{
		balances.POST("/reconcile/:id", anyRole, h.Reconcile)
		balances.POST("/reconcile-all", adminOnly, h.ReconcileAll)
		balances.GET("/users/:id", anyRole, h.GetUserBalances)
		balances.GET("/activities/:id", anyRole, h.GetActivityBalance)
	}
}

// Reconcile handles POST /balances/reconcile/:id
// @Summary      Reconcile a purchase request's balance
// @Description  Recomputes the request total, order total and balance from current line items and orders
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=service.BalanceResult}
// @Failure      404  {object}  response.Response
// @Router       /balances/reconcile/{id} [post]
func (h *BalanceHandler) Reconcile(c *gin.Context) {
	prID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.balanceService.Reconcile(c.Request.Context(), prID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ReconcileAll handles POST /balances/reconcile-all
// @Summary      Reconcile all balances
// @Description  Recomputes balances for every purchase request. Returns the number reconciled.
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /balances/reconcile-all [post]
func (h *BalanceHandler) ReconcileAll(c *gin.Context) {
	count, err := h.balanceService.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"reconciled": count,
	}))
}

// GetUserBalances handles GET /balances/users/:id
// @Summary      Get a user's balances
// @Description  Returns per-request balances and grand totals for a user. Non-admins may only view their own.
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserBalancesResponse}
// @Failure      403  {object}  response.Response
// @Router       /balances/users/{id} [get]
func (h *BalanceHandler) GetUserBalances(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.balanceService.GetUserBalances(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetActivityBalance handles GET /balances/activities/:id
// @Summary      Get a purchase request's balance
// @Description  Returns the balance snapshot for a single purchase request
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=service.ActivityBalanceResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /balances/activities/{id} [get]
func (h *BalanceHandler) GetActivityBalance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	prID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.balanceService.GetActivityBalance(c.Request.Context(), actor, prID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
