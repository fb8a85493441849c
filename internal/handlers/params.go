package handlers

import (
	"fmt"
	"strings"
	"time"

	"stockflow/internal/common"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// pagination reads limit and offset from the query string
func pagination(c echo.Context) (int, int, error) {
	var limit, offset int
	err := echo.QueryParamsBinder(c).
		Int("limit", &limit).
		Int("offset", &offset).
		BindError()
	if err != nil {
		return 0, 0, fmt.Errorf("limit and offset must be integers")
	}
	return common.ValidatePaginationParams(limit, offset)
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid UUID", name)
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps or bare YYYY-MM-DD dates (UTC midnight)
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339 or YYYY-MM-DD", name)
	}
	return &t, nil
}

func queryString(c echo.Context, name string) *string {
	return common.StringPtr(c.QueryParam(name))
}
