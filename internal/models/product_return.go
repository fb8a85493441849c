package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReturnStatus string

const (
	ReturnPending    ReturnStatus = "pending"
	ReturnInspecting ReturnStatus = "inspecting"
	ReturnCompleted  ReturnStatus = "completed"
	ReturnRejected   ReturnStatus = "rejected"
)

type ItemCondition string

const (
	ConditionNew       ItemCondition = "new"
	ConditionGood      ItemCondition = "good"
	ConditionDamaged   ItemCondition = "damaged"
	ConditionDefective ItemCondition = "defective"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionDamaged, ConditionDefective:
		return true
	}
	return false
}

// Restockable is the default restock decision for a condition; inspection may override it.
func (c ItemCondition) Restockable() bool {
	return c == ConditionNew || c == ConditionGood
}

// NewReturnNumber builds a return number: RT-YYYYMMDD-XXXXXX
func NewReturnNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RT-%s-%s", now.Format("20060102"), suffix)
}

type ProductReturn struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	ReturnNumber    string        `json:"return_number" db:"return_number"`
	OriginalOrderID *uuid.UUID    `json:"original_order_id,omitempty" db:"original_order_id"`
	Reason          string        `json:"reason" db:"reason"`
	Status          ReturnStatus  `json:"status" db:"status"`
	Notes           *string       `json:"notes,omitempty" db:"notes"`
	Items           []*ReturnItem `json:"items"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// IsOpen reports whether the return still accepts items and transitions
func (r *ProductReturn) IsOpen() bool {
	return r.Status == ReturnPending || r.Status == ReturnInspecting
}

func (r *ProductReturn) FindItem(itemID uuid.UUID) *ReturnItem {
	for _, item := range r.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

type ReturnItem struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	ReturnID            uuid.UUID     `json:"return_id" db:"return_id"`
	ProductID           uuid.UUID     `json:"product_id" db:"product_id"`
	Quantity            int           `json:"quantity" db:"quantity"`
	Condition           ItemCondition `json:"condition" db:"condition"`
	Restockable         bool          `json:"restockable" db:"restockable"`
	Restocked           bool          `json:"restocked" db:"restocked"`
	AllocatedLocationID *uuid.UUID    `json:"allocated_location_id,omitempty" db:"allocated_location_id"`
	Notes               *string       `json:"notes,omitempty" db:"notes"`
}

// NeedsRestock reports whether the item should go back on a shelf
func (i *ReturnItem) NeedsRestock() bool {
	return i.Restockable && !i.Restocked
}
