package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Any authenticated role may reach these routes; the workflow engine
	// enforces the per-operation role policy and returns 403 on mismatch.
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireRole(workflow.AllRoleNames()...))
	{
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.POST("", h.CreateRequest)
		requests.PUT("/:id/review", h.StartReview)
		requests.PUT("/:id/supply", h.SupplyFill)
		requests.PUT("/:id/decision", h.DirectorDecision)
		requests.PUT("/:id/fund", h.AccountantFund)
		requests.PUT("/:id/purchased", h.MarkPurchased)
		requests.PUT("/:id/receive", h.ConfirmReceive)
	}
}

// statusFromWorkflowError maps the engine's error taxonomy onto HTTP codes
func statusFromWorkflowError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// actorFromContext builds the caller identity from JWT claims set by the middleware
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	userID, _ := c.Get("userID")
	userRole, _ := c.Get("userRole")

	idStr, ok := userID.(string)
	if !ok {
		return service.Actor{}, false
	}
	roleStr, ok := userRole.(string)
	if !ok {
		return service.Actor{}, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}

	return service.Actor{ID: id, Role: workflow.Role(roleStr)}, true
}

func (h *RequestHandler) respond(c *gin.Context, result service.RequestResponse, err error) {
	if err != nil {
		status := statusFromWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// CreateRequest creates a new internal purchase request
// @Summary      Create internal request
// @Description  Creates a new internal purchase request in status NEW
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.CreateRequest(c.Request.Context(), actor, req)
	if err != nil {
		status := statusFromWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetRequest returns one request with its full history
// @Summary      Get internal request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	h.respond(c, result, err)
}

// ListRequests returns requests filtered by status and/or employee
// @Summary      List internal requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        status       query     string  false  "Filter by status"
// @Param        employee_id  query     string  false  "Filter by owning employee"
// @Success      200          {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestListFilter{
		Status:     c.Query("status"),
		EmployeeID: c.Query("employee_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		status := statusFromWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, requests, params.Page, params.Limit, total))
}

// StartReview moves a NEW request under supply review
// @Summary      Take request in review
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/review [put]
func (h *RequestHandler) StartReview(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	result, err := h.requestService.StartReview(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, result, err)
}

// SupplyFill records the supplier and unit price, moving the request to the director
// @Summary      Fill supply details
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.SupplyFillDTO  true  "Supply payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/supply [put]
func (h *RequestHandler) SupplyFill(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	var req service.SupplyFillDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.SupplyFill(c.Request.Context(), c.Param("id"), actor, req)
	h.respond(c, result, err)
}

// DirectorDecision approves or rejects a request waiting for the director
// @Summary      Director decision
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Request ID"
// @Param        payload  body      service.DirectorDecisionDTO  true  "Decision payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/decision [put]
func (h *RequestHandler) DirectorDecision(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	var req service.DirectorDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.DirectorDecision(c.Request.Context(), c.Param("id"), actor, req)
	h.respond(c, result, err)
}

// AccountantFund releases funds for an approved request
// @Summary      Fund request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/fund [put]
func (h *RequestHandler) AccountantFund(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	result, err := h.requestService.AccountantFund(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, result, err)
}

// MarkPurchased marks a funded request as purchased
// @Summary      Mark purchased
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/purchased [put]
func (h *RequestHandler) MarkPurchased(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	result, err := h.requestService.MarkPurchased(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, result, err)
}

// ConfirmReceive lets the owning employee confirm physical receipt
// @Summary      Confirm receipt
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/receive [put]
func (h *RequestHandler) ConfirmReceive(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid caller identity"))
		return
	}

	result, err := h.requestService.ConfirmReceive(c.Request.Context(), c.Param("id"), actor)
	h.respond(c, result, err)
}
