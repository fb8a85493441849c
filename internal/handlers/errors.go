package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"stockflow/internal/common"
	"stockflow/internal/ledger"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var validationErrors = []error{
	services.ErrInvalidQuantity,
	services.ErrInvalidInput,
	ledger.ErrInvalidQuantity,
}

var notFoundErrors = []error{
	services.ErrProductNotFound,
	services.ErrLocationNotFound,
	services.ErrOrderNotFound,
	services.ErrPickListNotFound,
	services.ErrPickItemNotFound,
	services.ErrReturnNotFound,
	services.ErrReturnItemNotFound,
	services.ErrAlertNotFound,
	services.ErrReceiptNotFound,
	services.ErrReceiptItemNotFound,
	ledger.ErrEntryNotFound,
}

var conflictErrors = []error{
	services.ErrInvalidTransition,
	services.ErrPickListExists,
	services.ErrPickListIncomplete,
	services.ErrLocationMismatch,
	services.ErrBarcodeMismatch,
	services.ErrItemAlreadyPicked,
	services.ErrQuantityExceedsRemaining,
	services.ErrNoUnpickedItem,
	services.ErrInsufficientCapacity,
	services.ErrNoLocationAvailable,
	services.ErrLocationInactive,
	services.ErrInsufficientStock,
	services.ErrDuplicate,
	ledger.ErrInsufficientStock,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps a service error onto the shared error envelope.
// Anything it does not recognise is logged and reported as a 500.
func respondError(c echo.Context, logger zerolog.Logger, err error) error {
	var capErr *services.CapacityError
	var scanErr *services.ScanError

	switch {
	case errors.As(err, &capErr):
		return common.SendConflictError(c, services.ErrInsufficientCapacity.Error(), map[string]string{
			"location_id": capErr.LocationID.String(),
			"available":   strconv.Itoa(capErr.Available),
			"requested":   strconv.Itoa(capErr.Requested),
		})
	case errors.As(err, &scanErr):
		var details map[string]string
		if scanErr.Expected != "" || scanErr.Scanned != "" {
			details = map[string]string{"expected": scanErr.Expected, "scanned": scanErr.Scanned}
		}
		return common.SendConflictError(c, scanErr.Reason.Error(), details)
	case isAny(err, validationErrors):
		return common.SendClientError(c, err.Error())
	case isAny(err, notFoundErrors):
		return c.JSON(http.StatusNotFound, common.CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	case isAny(err, conflictErrors):
		return common.SendConflictError(c, err.Error(), nil)
	case errors.Is(err, ledger.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Str("path", c.Path()).Msg("request timed out waiting for a lock")
		return common.SendUnavailableError(c, "resource is busy, retry shortly")
	default:
		logger.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
		return common.SendServerError(c, "internal server error")
	}
}
