package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry holds quantity and reservation for one product at one location
type LedgerEntry struct {
	ProductID        uuid.UUID `json:"product_id" db:"product_id"`
	LocationID       uuid.UUID `json:"location_id" db:"location_id"`
	Quantity         int       `json:"quantity" db:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity" db:"reserved_quantity"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Available is the portion of quantity not held by a reservation
func (e *LedgerEntry) Available() int {
	return e.Quantity - e.ReservedQuantity
}
