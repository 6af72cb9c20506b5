package handler

import (
	"net/http"

	"assetdesk/internal/middleware"
	"assetdesk/internal/model"
	"assetdesk/internal/service"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	employee := middleware.RequireRole(model.RoleEmployee)
	manager := middleware.RequireRole(model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)

	requests := router.Group("/api/requests")
	{
		requests.GET("", employee, h.ListMyRequests)
		requests.POST("", employee, h.CreateRequest)
	}

	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", manager, h.ListPendingApprovals)
		approvals.PUT("/:id/approve", manager, h.ApproveRequest)
		approvals.PUT("/:id/reject", manager, h.RejectRequest)
	}

	router.GET("/api/records", manager, h.ListMyRecords)

	router.POST("/api/assignments", admin, h.DirectAssign)

	returns := router.Group("/api/returns")
	{
		returns.GET("", admin, h.ListReturnable)
		returns.PUT("/:id", admin, h.ReturnRequest)
	}
}

// ListMyRequests returns the current employee's requests, optionally filtered by status
// @Summary      List own requests
// @Description  Retrieves the authenticated employee's asset requests, newest first
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status (pending, approved, rejected)"
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID := c.GetString("userID")

	requests, err := h.requestService.ListMyRequests(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// CreateRequest creates a new pending asset request owned by the current employee
// @Summary      Create request
// @Description  Creates a pending asset request for a catalog product
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.requestService.CreateRequest(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListPendingApprovals returns the manager worklist in creation order
// @Summary      List pending approvals
// @Description  Retrieves all pending requests, oldest first
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/approvals [get]
func (h *RequestHandler) ListPendingApprovals(c *gin.Context) {
	requests, err := h.requestService.ListPendingApprovals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// ApproveRequest approves a pending request and decrements stock
// @Summary      Approve request
// @Description  Approves a pending request and decrements the product quantity
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.requestService.ApproveRequest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RejectRequest rejects a pending request
// @Summary      Reject request
// @Description  Rejects a pending request; stock is unchanged
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.requestService.RejectRequest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListMyRecords returns requests decided by the current manager
// @Summary      List decision records
// @Description  Retrieves requests approved or rejected by the authenticated manager
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/records [get]
func (h *RequestHandler) ListMyRecords(c *gin.Context) {
	userID := c.GetString("userID")

	requests, err := h.requestService.ListDecidedBy(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// DirectAssign creates a pre-approved request for an employee and decrements stock
// @Summary      Direct assignment
// @Description  Creates an already-approved request on behalf of an employee
// @Tags         assignments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.DirectAssignDTO  true  "Direct Assignment Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/assignments [post]
func (h *RequestHandler) DirectAssign(c *gin.Context) {
	var req service.DirectAssignDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.requestService.DirectAssign(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListReturnable returns approved, not-yet-returned requests
// @Summary      List returnable requests
// @Description  Retrieves approved requests that have not been returned yet
// @Tags         returns
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequestResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/returns [get]
func (h *RequestHandler) ListReturnable(c *gin.Context) {
	requests, err := h.requestService.ListReturnable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// ReturnRequest marks an approved request as returned and restores stock
// @Summary      Process return
// @Description  Marks an approved request as returned and restores the product quantity
// @Tags         returns
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/returns/{id} [put]
func (h *RequestHandler) ReturnRequest(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.requestService.ReturnRequest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
