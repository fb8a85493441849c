package handlers

import (
	"net/http"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const defaultSummaryDays = 7

type StockHandlers struct {
	stock  services.StockService
	now    func() time.Time
	logger zerolog.Logger
}

func NewStockHandlers(stock services.StockService, logger zerolog.Logger) *StockHandlers {
	return &StockHandlers{stock: stock, now: time.Now, logger: logger}
}

// AdjustStock sets a ledger entry to a counted quantity
func (h *StockHandlers) AdjustStock(c echo.Context) error {
	var req services.AdjustStockInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Reason, "reason"); err != nil {
		return common.SendValidationError(c, "reason", err.Error())
	}

	result, err := h.stock.AdjustStock(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

// TransferStock moves stock between two shelves
func (h *StockHandlers) TransferStock(c echo.Context) error {
	var req services.TransferStockInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	result, err := h.stock.TransferStock(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StockHandlers) ListMovements(c echo.Context) error {
	var filter models.MovementFilter
	var err error

	if filter.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return common.SendValidationError(c, "product_id", err.Error())
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return common.SendValidationError(c, "location_id", err.Error())
	}
	if kind := queryString(c, "kind"); kind != nil {
		k := models.MovementKind(*kind)
		if !k.Valid() {
			return common.SendValidationError(c, "kind", "unknown movement kind")
		}
		filter.Kind = &k
	}
	if filter.From, err = queryTime(c, "from"); err != nil {
		return common.SendValidationError(c, "from", err.Error())
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		return common.SendValidationError(c, "to", err.Error())
	}
	if filter.Limit, filter.Offset, err = pagination(c); err != nil {
		return common.SendClientError(c, err.Error())
	}

	movements, err := h.stock.Movements(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// DailySummary aggregates movements per day and kind. Defaults to the last seven days.
func (h *StockHandlers) DailySummary(c echo.Context) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return common.SendValidationError(c, "from", err.Error())
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return common.SendValidationError(c, "to", err.Error())
	}

	end := h.now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -defaultSummaryDays)
	if from != nil {
		start = *from
	}

	summary, err := h.stock.DailyMovementSummary(c.Request().Context(), start, end)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"from":    start,
		"to":      end,
		"summary": summary,
	})
}
