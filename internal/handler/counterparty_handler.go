package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type CounterpartyHandler struct {
	counterpartyService service.CounterpartyService
}

func NewCounterpartyHandler(counterpartyService service.CounterpartyService) *CounterpartyHandler {
	return &CounterpartyHandler{counterpartyService: counterpartyService}
}

func (h *CounterpartyHandler) RegisterRoutes(router *gin.RouterGroup) {
	counterparties := router.Group("/api/counterparties")
	{
		counterparties.GET("", middleware.RequireRole("employee", "supplier", "director", "accountant", "admin"), h.ListCounterparties)
		counterparties.POST("", middleware.RequireRole("supplier", "admin"), h.CreateCounterparty)
		counterparties.PUT("/:id", middleware.RequireRole("supplier", "admin"), h.UpdateCounterparty)
		counterparties.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteCounterparty)
	}
}

func userIDFromContext(c *gin.Context) string {
	userID, _ := c.Get("userID")
	idStr, _ := userID.(string)
	return idStr
}

// ListCounterparties returns paginated counterparties with optional type/search filter
// @Summary      List counterparties
// @Tags         counterparties
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        type    query     string  false  "Filter by type: SUPPLIER, CUSTOMER, BOTH"
// @Param        search  query     string  false  "Search by name, INN, phone, email"
// @Success      200     {object}  response.Response
// @Router       /api/counterparties [get]
func (h *CounterpartyHandler) ListCounterparties(c *gin.Context) {
	params := pagination.Parse(c)

	counterparties, total, err := h.counterpartyService.GetCounterparties(
		c.Request.Context(), c.Query("type"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, counterparties, params.Page, params.Limit, total))
}

// CreateCounterparty creates a new counterparty
// @Summary      Create counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCounterpartyRequest  true  "Counterparty payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/counterparties [post]
func (h *CounterpartyHandler) CreateCounterparty(c *gin.Context) {
	var req service.CreateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	cp, err := h.counterpartyService.CreateCounterparty(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cp))
}

// UpdateCounterparty updates an existing counterparty
// @Summary      Update counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "Counterparty ID"
// @Param        payload  body      service.UpdateCounterpartyRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/counterparties/{id} [put]
func (h *CounterpartyHandler) UpdateCounterparty(c *gin.Context) {
	var req service.UpdateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	cp, err := h.counterpartyService.UpdateCounterparty(c.Request.Context(), c.Param("id"), userIDFromContext(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cp))
}

// DeleteCounterparty deletes a counterparty (soft delete)
// @Summary      Delete counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Counterparty ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/counterparties/{id} [delete]
func (h *CounterpartyHandler) DeleteCounterparty(c *gin.Context) {
	if err := h.counterpartyService.DeleteCounterparty(c.Request.Context(), c.Param("id"), userIDFromContext(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Counterparty deleted successfully"}))
}
