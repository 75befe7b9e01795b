package handler

import (
	"net/http"

	"pms-backend/internal/middleware"
	"pms-backend/internal/model"
	"pms-backend/internal/service"
	"pms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
}

// NewPurchaseOrderHandler sets up the routing dependencies for PO endpoints
func NewPurchaseOrderHandler(poService service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleRequester, model.RoleApprover, model.RoleAdmin)

	// Quotation mutations are open to every authenticated role; the service
	// guards on PR status and visibility, not on role.
	router.POST("/purchase-requests/:id/purchase-orders", anyRole, h.CreateForPR)
	router.GET("/purchase-requests/:id/purchase-orders", anyRole, h.ListByPR)
	router.GET("/purchase-orders/requests", anyRole, h.ListPRsWithOrders)

	pos := router.Group("/purchase-orders")
	{
		pos.PUT("/:id", anyRole, h.Update)
		pos.DELETE("/:id", anyRole, h.Delete)
	}
}

// CreateForPR handles POST /purchase-requests/:id/purchase-orders
// @Summary      Create purchase orders
// @Description  Records supplier quotations against an approved purchase request's line items
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                                   true  "Purchase Request ID"
// @Param        payload  body      service.CreatePurchaseOrdersRequest   true  "Selections Payload"
// @Success      201      {object}  response.Response{data=[]service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/purchase-orders [post]
func (h *PurchaseOrderHandler) CreateForPR(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	prID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.CreatePurchaseOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	orders, err := h.poService.CreateForPR(c.Request.Context(), actor, prID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, orders))
}

// ListByPR handles GET /purchase-requests/:id/purchase-orders
// @Summary      List purchase orders for a request
// @Description  Returns the request's purchase orders grouped by supplier with per-supplier subtotals
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=service.GroupedPurchaseOrdersResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id}/purchase-orders [get]
func (h *PurchaseOrderHandler) ListByPR(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	prID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	grouped, err := h.poService.ListByPRGrouped(c.Request.Context(), actor, prID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grouped))
}

// ListPRsWithOrders handles GET /purchase-orders/requests
// @Summary      List requests that have purchase orders
// @Description  Requesters see their own requests with orders, approvers and admins see all
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PurchaseRequestResponse}
// @Failure      500  {object}  response.Response
// @Router       /purchase-orders/requests [get]
func (h *PurchaseOrderHandler) ListPRsWithOrders(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	prs, err := h.poService.ListPRsWithOrders(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, prs))
}

// Update handles PUT /purchase-orders/:id
// @Summary      Update purchase order
// @Description  Updates a quotation's supplier, brand or price and recomputes the request's balance
// @Tags         purchase-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                                  true  "Purchase Order ID"
// @Param        payload  body      service.UpdatePurchaseOrderRequest   true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /purchase-orders/{id} [put]
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	poID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Update(c.Request.Context(), actor, poID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Delete handles DELETE /purchase-orders/:id
// @Summary      Delete purchase order
// @Description  Removes a quotation and recomputes the request's balance
// @Tags         purchase-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	poID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.poService.Delete(c.Request.Context(), actor, poID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase order deleted successfully"))
}
