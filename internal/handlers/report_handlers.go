package handlers

import (
	"net/http"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ReportHandlers struct {
	reports services.ReportService
	now     func() time.Time
	logger  zerolog.Logger
}

func NewReportHandlers(reports services.ReportService, logger zerolog.Logger) *ReportHandlers {
	return &ReportHandlers{reports: reports, now: time.Now, logger: logger}
}

type ExportMovementsRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, empty for yesterday
}

// ExportMovements writes one day's movements to object storage and returns a download link
func (h *ReportHandlers) ExportMovements(c echo.Context) error {
	if h.reports == nil {
		return common.SendUnavailableError(c, "report storage is not configured")
	}
	var req ExportMovementsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	day, err := common.ParseDay(req.Date, h.now())
	if err != nil {
		return common.SendValidationError(c, "date", err.Error())
	}

	export, err := h.reports.ExportMovements(c.Request().Context(), day)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, export)
}
