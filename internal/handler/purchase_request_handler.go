package handler

import (
	"net/http"

	"pms-backend/internal/middleware"
	"pms-backend/internal/model"
	"pms-backend/internal/service"
	"pms-backend/pkg/pagination"
	"pms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseRequestHandler struct {
	prService     service.PurchaseRequestService
	exportService service.ExportService
}

// NewPurchaseRequestHandler sets up the routing dependencies for PR endpoints
func NewPurchaseRequestHandler(prService service.PurchaseRequestService, exportService service.ExportService) *PurchaseRequestHandler {
	return &PurchaseRequestHandler{prService: prService, exportService: exportService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *PurchaseRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleRequester, model.RoleApprover, model.RoleAdmin)
	moderators := middleware.RequireRole(model.RoleApprover, model.RoleAdmin)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	prs := router.Group("/purchase-requests")
	{
		prs.POST("", anyRole, h.Create)
		prs.GET("", anyRole, h.List)
		prs.GET("/:id", anyRole, h.Get)
		prs.PUT("/:id", anyRole, h.Update)
		prs.POST("/:id/submit", anyRole, h.Submit)
		prs.POST("/:id/decision", moderators, h.Decide)
		prs.DELETE("/:id", adminOnly, h.Delete)
		prs.GET("/:id/history", anyRole, h.ApprovalHistory)
		prs.GET("/:id/export", anyRole, h.Export)
	}
}

// Create handles POST /purchase-requests
// @Summary      Create purchase request
// @Description  Creates a draft purchase request with its line items and an initial balance snapshot
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePurchaseRequestRequest  true  "Purchase Request Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseRequestDetailResponse}
// @Failure      400      {object}  response.Response
// @Router       /purchase-requests [post]
func (h *PurchaseRequestHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.CreatePurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pr, err := h.prService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pr))
}

// List handles GET /purchase-requests
// @Summary      List purchase requests
// @Description  Requesters see their own requests, approvers and admins see all
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=[]service.PurchaseRequestResponse}
// @Failure      500    {object}  response.Response
// @Router       /purchase-requests [get]
func (h *PurchaseRequestHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)

	prs, total, err := h.prService.List(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch purchase requests"))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, prs, params.Page, params.Limit, total))
}

// Get handles GET /purchase-requests/:id
// @Summary      Get purchase request
// @Description  Fetch a purchase request with its line items. Requesters may only read their own.
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=service.PurchaseRequestDetailResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id} [get]
func (h *PurchaseRequestHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pr, err := h.prService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pr))
}

// Update handles PUT /purchase-requests/:id
// @Summary      Update purchase request
// @Description  Replaces the request's fields and full line-item set, then recomputes balances
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                                   true  "Purchase Request ID"
// @Param        payload  body      service.UpdatePurchaseRequestRequest  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.PurchaseRequestDetailResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /purchase-requests/{id} [put]
func (h *PurchaseRequestHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pr, err := h.prService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pr))
}

// Submit handles POST /purchase-requests/:id/submit
// @Summary      Submit purchase request
// @Description  Moves a draft request into pending state for approval. Only the creating requester may submit.
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /purchase-requests/{id}/submit [post]
func (h *PurchaseRequestHandler) Submit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pr, err := h.prService.Submit(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pr))
}

// Decide handles POST /purchase-requests/:id/decision
// @Summary      Approve or reject purchase request
// @Description  Records an approve/reject decision on a pending request and writes an audit log entry
// @Tags         purchase-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                                   true  "Purchase Request ID"
// @Param        payload  body      service.DecidePurchaseRequestRequest  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=service.PurchaseRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /purchase-requests/{id}/decision [post]
func (h *PurchaseRequestHandler) Decide(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req service.DecidePurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pr, err := h.prService.Decide(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pr))
}

// Delete handles DELETE /purchase-requests/:id
// @Summary      Delete purchase request
// @Description  Deletes a purchase request and its line items. Rejected when purchase orders exist.
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /purchase-requests/{id} [delete]
func (h *PurchaseRequestHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.prService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase request deleted successfully"))
}

// ApprovalHistory handles GET /purchase-requests/:id/history
// @Summary      Get approval history
// @Description  Returns the append-only approval log for a purchase request, oldest first
// @Tags         purchase-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Purchase Request ID"
// @Success      200  {object}  response.Response{data=[]service.ApprovalLogResponse}
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id}/history [get]
func (h *PurchaseRequestHandler) ApprovalHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	logs, err := h.prService.ApprovalHistory(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, logs))
}

// Export handles GET /purchase-requests/:id/export
// @Summary      Export purchase request
// @Description  Streams the purchase request as an xlsx spreadsheet
// @Tags         purchase-requests
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id   path  int  true  "Purchase Request ID"
// @Success      200  {file}  file
// @Failure      404  {object}  response.Response
// @Router       /purchase-requests/{id}/export [get]
func (h *PurchaseRequestHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, filename, err := h.exportService.ExportPR(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() { _ = file.Close() }()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to write spreadsheet"))
	}
}
