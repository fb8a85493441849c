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

type ReturnHandlers struct {
	returns services.ReturnService
	logger  zerolog.Logger
}

func NewReturnHandlers(returns services.ReturnService, logger zerolog.Logger) *ReturnHandlers {
	return &ReturnHandlers{returns: returns, logger: logger}
}

// InspectItemRequest records the inspection verdict for one returned item
type InspectItemRequest struct {
	Restockable bool       `json:"restockable"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
}

type RejectReturnRequest struct {
	Notes string `json:"notes"`
}

func (h *ReturnHandlers) CreateReturn(c echo.Context) error {
	var req services.CreateReturnInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Reason, "reason"); err != nil {
		return common.SendValidationError(c, "reason", err.Error())
	}

	ret, err := h.returns.CreateReturn(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, ret)
}

func (h *ReturnHandlers) ListReturns(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var status *models.ReturnStatus
	if raw := queryString(c, "status"); raw != nil {
		s := models.ReturnStatus(*raw)
		status = &s
	}

	returns, err := h.returns.ListReturns(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"returns": returns,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ReturnHandlers) GetReturn(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	ret, err := h.returns.GetReturn(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ret)
}

func (h *ReturnHandlers) AddItem(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req services.ReturnItemInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if !req.Condition.Valid() {
		return common.SendValidationError(c, "condition", "condition must be one of new, good, damaged, defective")
	}

	item, err := h.returns.AddItem(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// InspectItem marks an item restockable or not, optionally pinning its destination shelf
func (h *ReturnHandlers) InspectItem(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	itemID, err := common.ParseUUIDParam(c, "itemId")
	if err != nil {
		return common.SendValidationError(c, "itemId", err.Error())
	}
	var req InspectItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	item, err := h.returns.SetItemRestockable(c.Request().Context(), id, itemID, req.Restockable, req.LocationID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ReturnHandlers) StartInspection(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	ret, err := h.returns.StartInspection(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ret)
}

// Complete closes the return and restocks every restockable item it can place
func (h *ReturnHandlers) Complete(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	report, err := h.returns.CompleteAndRestock(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *ReturnHandlers) Reject(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req RejectReturnRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	ret, err := h.returns.RejectReturn(c.Request().Context(), id, req.Notes)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ret)
}
