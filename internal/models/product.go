package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SKU           string    `json:"sku" db:"sku"`
	Name          string    `json:"name" db:"name"`
	Barcode       string    `json:"barcode" db:"barcode"`
	MinStockLevel int       `json:"min_stock_level" db:"min_stock_level"` // Threshold for low-stock alerts, 0 disables
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether total stock across all locations has fallen below the product's minimum.
func (p *Product) IsLowStock(totalStock int) bool {
	return p.MinStockLevel > 0 && totalStock < p.MinStockLevel
}

// ProductStockSnapshot is the ledger view of one product across every location holding it
type ProductStockSnapshot struct {
	ProductID      uuid.UUID           `json:"product_id"`
	SKU            string              `json:"sku"`
	TotalQuantity  int                 `json:"total_quantity"`
	TotalReserved  int                 `json:"total_reserved"`
	TotalAvailable int                 `json:"total_available"`
	MinStockLevel  int                 `json:"min_stock_level"`
	IsLowStock     bool                `json:"is_low_stock"`
	Locations      []LocationStockLine `json:"locations"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// LocationStockLine is a single (product, location) line inside a stock snapshot
type LocationStockLine struct {
	ProductID     uuid.UUID `json:"product_id"`
	LocationID    uuid.UUID `json:"location_id"`
	LocationCode  string    `json:"location_code"`
	LocationLabel string    `json:"location_label"`
	Quantity      int       `json:"quantity"`
	Reserved      int       `json:"reserved"`
	Available     int       `json:"available"`
	UpdatedAt     time.Time `json:"updated_at"`
}
