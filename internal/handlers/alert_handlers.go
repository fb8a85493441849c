package handlers

import (
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type AlertHandlers struct {
	alerts services.AlertService
	logger zerolog.Logger
}

func NewAlertHandlers(alerts services.AlertService, logger zerolog.Logger) *AlertHandlers {
	return &AlertHandlers{alerts: alerts, logger: logger}
}

type AlertNotesRequest struct {
	Notes string `json:"notes"`
}

// Sweep runs the low-stock check over every product on demand
func (h *AlertHandlers) Sweep(c echo.Context) error {
	result, err := h.alerts.Sweep(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AlertHandlers) ListAlerts(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	var status *models.AlertStatus
	if raw := queryString(c, "status"); raw != nil {
		s := models.AlertStatus(*raw)
		status = &s
	}
	var severity *models.AlertSeverity
	if raw := queryString(c, "severity"); raw != nil {
		s := models.AlertSeverity(*raw)
		severity = &s
	}

	alerts, err := h.alerts.ListAlerts(c.Request().Context(), status, severity, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *AlertHandlers) Summary(c echo.Context) error {
	summary, err := h.alerts.Summary(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *AlertHandlers) Acknowledge(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req AlertNotesRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	alert, err := h.alerts.AcknowledgeAlert(c.Request().Context(), id, req.Notes)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *AlertHandlers) Resolve(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req AlertNotesRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	alert, err := h.alerts.ResolveAlert(c.Request().Context(), id, req.Notes)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, alert)
}
