package models

import (
	"time"

	"github.com/google/uuid"
)

type MovementKind string

const (
	MovementReceipt    MovementKind = "receipt"
	MovementPick       MovementKind = "pick"
	MovementReturn     MovementKind = "return"
	MovementAdjustment MovementKind = "adjustment"
	MovementTransfer   MovementKind = "transfer"
)

// Valid reports whether k is one of the known movement kinds
func (k MovementKind) Valid() bool {
	switch k {
	case MovementReceipt, MovementPick, MovementReturn, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// MovementRecord is an immutable audit entry for one ledger mutation
type MovementRecord struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	ProductID        uuid.UUID    `json:"product_id" db:"product_id"`
	FromLocationID   *uuid.UUID   `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID     *uuid.UUID   `json:"to_location_id,omitempty" db:"to_location_id"`
	Kind             MovementKind `json:"kind" db:"kind"`
	Quantity         int          `json:"quantity" db:"quantity"`
	PreviousQuantity int          `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int          `json:"new_quantity" db:"new_quantity"`
	Reference        string       `json:"reference" db:"reference"`
	Notes            *string      `json:"notes,omitempty" db:"notes"`
	PerformedBy      *uuid.UUID   `json:"performed_by,omitempty" db:"performed_by"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}

// MovementFilter narrows movement queries. Zero values mean "no filter".
type MovementFilter struct {
	ProductID  *uuid.UUID    `query:"product_id"`
	LocationID *uuid.UUID    `query:"location_id"` // Matches either side of the movement
	Kind       *MovementKind `query:"kind"`
	From       *time.Time    `query:"from"`
	To         *time.Time    `query:"to"`
	Limit      int           `query:"limit"`
	Offset     int           `query:"offset"`
}

// DailyMovementSummary aggregates one day's movements of one kind
type DailyMovementSummary struct {
	Day           time.Time    `json:"day"`
	Kind          MovementKind `json:"kind"`
	Movements     int          `json:"movements"`
	TotalQuantity int          `json:"total_quantity"`
}
