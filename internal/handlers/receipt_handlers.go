package handlers

import (
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ReceiptHandlers struct {
	receipts services.ReceiptService
	logger   zerolog.Logger
}

func NewReceiptHandlers(receipts services.ReceiptService, logger zerolog.Logger) *ReceiptHandlers {
	return &ReceiptHandlers{receipts: receipts, logger: logger}
}

type ReceiveScanRequest struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"` // Defaults to 1
}

func (h *ReceiptHandlers) CreateReceipt(c echo.Context) error {
	var req services.CreateReceiptInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	gr, err := h.receipts.CreateReceipt(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, gr)
}

func (h *ReceiptHandlers) ListReceipts(c echo.Context) error {
	var status *models.ReceiptStatus
	if raw := queryString(c, "status"); raw != nil {
		s := models.ReceiptStatus(*raw)
		if !s.Valid() {
			return common.SendValidationError(c, "status", "status must be one of pending, in_progress, completed, cancelled")
		}
		status = &s
	}
	return h.list(c, status)
}

func (h *ReceiptHandlers) ListPending(c echo.Context) error {
	status := models.ReceiptPending
	return h.list(c, &status)
}

func (h *ReceiptHandlers) ListInProgress(c echo.Context) error {
	status := models.ReceiptInProgress
	return h.list(c, &status)
}

func (h *ReceiptHandlers) list(c echo.Context, status *models.ReceiptStatus) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	receipts, err := h.receipts.ListReceipts(c.Request().Context(), status, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *ReceiptHandlers) Stats(c echo.Context) error {
	stats, err := h.receipts.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *ReceiptHandlers) GetReceipt(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	gr, err := h.receipts.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, gr)
}

func (h *ReceiptHandlers) AddItem(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req services.ReceiptItemInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.ExpectedQuantity <= 0 {
		return common.SendValidationError(c, "expected_quantity", "expected_quantity must be positive")
	}

	item, err := h.receipts.AddItem(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ReceiptHandlers) Start(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	gr, err := h.receipts.StartProcessing(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, gr)
}

func (h *ReceiptHandlers) ScanItem(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	itemID, err := common.ParseUUIDParam(c, "itemId")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var req ReceiveScanRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Barcode, "barcode"); err != nil {
		return common.SendValidationError(c, "barcode", err.Error())
	}

	result, err := h.receipts.ScanItem(c.Request().Context(), services.ReceiptScanRequest{
		ReceiptID: id,
		ItemID:    itemID,
		Barcode:   req.Barcode,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Complete shelves every received line. A receipt with lines that found no room stays in progress.
func (h *ReceiptHandlers) Complete(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	report, err := h.receipts.CompleteReceipt(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *ReceiptHandlers) Cancel(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	gr, err := h.receipts.CancelReceipt(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, gr)
}
