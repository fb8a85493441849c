package handlers

import (
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxBatchLines = 1000

type AllocationHandlers struct {
	allocator services.AllocationService
	logger    zerolog.Logger
}

func NewAllocationHandlers(allocator services.AllocationService, logger zerolog.Logger) *AllocationHandlers {
	return &AllocationHandlers{allocator: allocator, logger: logger}
}

// PlaceSpecificRequest places stock on a location chosen by the operator
type PlaceSpecificRequest struct {
	models.PlacementRequest
	LocationID uuid.UUID `json:"location_id"`
}

// ProductQuantityRequest carries the product and quantity for read-only planning calls
type ProductQuantityRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type BatchAllocationRequest struct {
	Items []models.PlacementRequest `json:"items"`
}

// PlaceIncoming stores received stock on the best location
func (h *AllocationHandlers) PlaceIncoming(c echo.Context) error {
	var req models.PlacementRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ProductID == uuid.Nil {
		return common.SendValidationError(c, "product_id", "product_id is required")
	}

	result, err := h.allocator.PlaceIncoming(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *AllocationHandlers) PlaceSpecific(c echo.Context) error {
	var req PlaceSpecificRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ProductID == uuid.Nil {
		return common.SendValidationError(c, "product_id", "product_id is required")
	}
	if req.LocationID == uuid.Nil {
		return common.SendValidationError(c, "location_id", "location_id is required")
	}

	result, err := h.allocator.PlaceSpecific(c.Request().Context(), req.PlacementRequest, req.LocationID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *AllocationHandlers) Suggest(c echo.Context) error {
	var req ProductQuantityRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	suggestion, err := h.allocator.SuggestLocation(c.Request().Context(), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, suggestion)
}

// Batch allocates a goods receipt line by line. Failed lines are reported in the result.
func (h *AllocationHandlers) Batch(c echo.Context) error {
	var req BatchAllocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidatePositiveInteger(len(req.Items), "items", maxBatchLines); err != nil {
		return common.SendValidationError(c, "items", err.Error())
	}

	result, err := h.allocator.AllocateBatch(c.Request().Context(), req.Items)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AllocationHandlers) WithdrawalPlan(c echo.Context) error {
	var req ProductQuantityRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	plan, err := h.allocator.PlanWithdrawal(c.Request().Context(), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, plan)
}
