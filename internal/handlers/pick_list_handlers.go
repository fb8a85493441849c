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

// PickListHandlers covers pick list generation and the scan flow on the floor
type PickListHandlers struct {
	fulfillment services.FulfillmentService
	picking     services.PickingService
	logger      zerolog.Logger
}

func NewPickListHandlers(fulfillment services.FulfillmentService, picking services.PickingService, logger zerolog.Logger) *PickListHandlers {
	return &PickListHandlers{fulfillment: fulfillment, picking: picking, logger: logger}
}

type BatchPickListRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
}

// ScanItemRequest is a scan against one pick list item
type ScanItemRequest struct {
	Barcode          string `json:"barcode"`
	Quantity         int    `json:"quantity"` // Defaults to 1
	ExpectedLocation string `json:"expected_location"`
}

type QuickScanRequest struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

// GeneratePickList reserves stock for an order and creates its pick list.
// A 200 with no pick list means nothing could be reserved yet.
func (h *PickListHandlers) GeneratePickList(c echo.Context) error {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	result, err := h.fulfillment.GeneratePickList(c.Request().Context(), orderID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if result.PickList == nil {
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *PickListHandlers) GenerateBatch(c echo.Context) error {
	var req BatchPickListRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidatePositiveInteger(len(req.OrderIDs), "order_ids", maxBatchLines); err != nil {
		return common.SendValidationError(c, "order_ids", err.Error())
	}

	result, err := h.fulfillment.GeneratePickListsBatch(c.Request().Context(), req.OrderIDs)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PickListHandlers) ListPickLists(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var status *models.PickListStatus
	if raw := queryString(c, "status"); raw != nil {
		s := models.PickListStatus(*raw)
		status = &s
	}

	lists, err := h.fulfillment.ListPickLists(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pick_lists": lists,
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *PickListHandlers) GetPickList(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	pickList, err := h.fulfillment.GetPickList(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, pickList)
}

// PickingPath returns the unpicked items in walking order
func (h *PickListHandlers) PickingPath(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	path, err := h.fulfillment.PickingPath(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pick_list_id": id,
		"items":        path,
	})
}

func (h *PickListHandlers) Progress(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	progress, err := h.picking.Progress(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, progress)
}

func (h *PickListHandlers) Start(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	pickList, err := h.picking.StartPicking(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, pickList)
}

func (h *PickListHandlers) Complete(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	pickList, err := h.picking.CompletePicking(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, pickList)
}

// Cancel closes the pick list and hands unpicked reservations back
func (h *PickListHandlers) Cancel(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	result, err := h.picking.CancelPickList(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PickListHandlers) scanTarget(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	pickListID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := common.ParseUUIDParam(c, "itemId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return pickListID, itemID, nil
}

func (h *PickListHandlers) ScanItem(c echo.Context) error {
	pickListID, itemID, err := h.scanTarget(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var req ScanItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Barcode, "barcode"); err != nil {
		return common.SendValidationError(c, "barcode", err.Error())
	}

	result, err := h.picking.ScanPick(c.Request().Context(), services.ScanRequest{
		PickListID:       pickListID,
		ItemID:           itemID,
		Barcode:          req.Barcode,
		Quantity:         req.Quantity,
		ExpectedLocation: req.ExpectedLocation,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

// PickRemaining picks everything still outstanding on the item in one scan
func (h *PickListHandlers) PickRemaining(c echo.Context) error {
	pickListID, itemID, err := h.scanTarget(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var req ScanItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Barcode, "barcode"); err != nil {
		return common.SendValidationError(c, "barcode", err.Error())
	}

	result, err := h.picking.PickRemaining(c.Request().Context(), pickListID, itemID, req.Barcode, req.ExpectedLocation)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *PickListHandlers) QuickScan(c echo.Context) error {
	pickListID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req QuickScanRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Barcode, "barcode"); err != nil {
		return common.SendValidationError(c, "barcode", err.Error())
	}

	result, err := h.picking.QuickScan(c.Request().Context(), pickListID, req.Barcode, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}
