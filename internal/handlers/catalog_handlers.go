package handlers

import (
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// CatalogHandlers serves products, locations and orders
type CatalogHandlers struct {
	catalog services.CatalogService
	stock   services.StockService
	logger  zerolog.Logger
}

func NewCatalogHandlers(catalog services.CatalogService, stock services.StockService, logger zerolog.Logger) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, stock: stock, logger: logger}
}

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Barcode       string `json:"barcode"`
	MinStockLevel int    `json:"min_stock_level"`
}

func (h *CatalogHandlers) CreateProduct(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.SKU, "sku"); err != nil {
		return common.SendValidationError(c, "sku", err.Error())
	}
	if err := common.ValidateRequiredString(req.Barcode, "barcode"); err != nil {
		return common.SendValidationError(c, "barcode", err.Error())
	}
	if req.MinStockLevel < 0 {
		return common.SendValidationError(c, "min_stock_level", "min_stock_level cannot be negative")
	}

	product := &models.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Barcode:       req.Barcode,
		MinStockLevel: req.MinStockLevel,
	}
	if err := h.catalog.CreateProduct(c.Request().Context(), product); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// ListProducts pages through the catalog. With ?barcode= it returns the single matching product.
func (h *CatalogHandlers) ListProducts(c echo.Context) error {
	if barcode := queryString(c, "barcode"); barcode != nil {
		product, err := h.catalog.GetProductByBarcode(c.Request().Context(), *barcode)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, product)
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	products, err := h.catalog.ListProducts(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *CatalogHandlers) GetProduct(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHandlers) ProductStock(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	snapshot, err := h.stock.ProductStock(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *CatalogHandlers) ProductMovements(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	movements, err := h.stock.Movements(c.Request().Context(), models.MovementFilter{
		ProductID: &id,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"limit":     limit,
		"offset":    offset,
	})
}

// CreateLocationRequest represents the location creation payload. Capacity 0 takes the default.
type CreateLocationRequest struct {
	Code        string `json:"code"`
	Aisle       string `json:"aisle"`
	Rack        string `json:"rack"`
	Level       string `json:"level"`
	MaxCapacity int    `json:"max_capacity"`
	IsActive    *bool  `json:"is_active"`
}

func (h *CatalogHandlers) CreateLocation(c echo.Context) error {
	var req CreateLocationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Code, "code"); err != nil {
		return common.SendValidationError(c, "code", err.Error())
	}

	location := &models.Location{
		Code:        req.Code,
		Aisle:       req.Aisle,
		Rack:        req.Rack,
		Level:       req.Level,
		MaxCapacity: req.MaxCapacity,
		IsActive:    true,
	}
	if req.IsActive != nil {
		location.IsActive = *req.IsActive
	}
	if err := h.catalog.CreateLocation(c.Request().Context(), location); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, location)
}

func (h *CatalogHandlers) UpdateLocation(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	var req services.LocationUpdate
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	location, err := h.catalog.UpdateLocation(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, location)
}

func (h *CatalogHandlers) ListLocations(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	locations, err := h.catalog.ListLocations(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"locations": locations,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *CatalogHandlers) GetLocation(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	location, err := h.catalog.GetLocation(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, location)
}

func (h *CatalogHandlers) LocationStock(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	snapshot, err := h.stock.LocationStock(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *CatalogHandlers) CreateOrder(c echo.Context) error {
	var req services.CreateOrderInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if len(req.Lines) == 0 {
		return common.SendValidationError(c, "lines", "at least one line is required")
	}
	order, err := h.catalog.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, order)
}

func (h *CatalogHandlers) GetOrder(c echo.Context) error {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}
	order, err := h.catalog.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, order)
}
