package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PickListStatus string

const (
	PickListPending    PickListStatus = "pending"
	PickListInProgress PickListStatus = "in_progress"
	PickListCompleted  PickListStatus = "completed"
	PickListCancelled  PickListStatus = "cancelled"
)

type PickItemState string

const (
	PickItemPending         PickItemState = "pending"
	PickItemPartiallyPicked PickItemState = "partially_picked"
	PickItemPicked          PickItemState = "picked"
)

// NewPickListNumber builds a human readable pick list number: PL-YYYYMMDD-XXXXXX
func NewPickListNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PL-%s-%s", now.Format("20060102"), suffix)
}

type PickList struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	PickListNumber string          `json:"pick_list_number" db:"pick_list_number"`
	OrderID        uuid.UUID       `json:"order_id" db:"order_id"`
	Status         PickListStatus  `json:"status" db:"status"`
	Items          []*PickPlanItem `json:"items"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsComplete reports whether the list has items and every one of them is picked
func (p *PickList) IsComplete() bool {
	if len(p.Items) == 0 {
		return false
	}
	for _, item := range p.Items {
		if !item.IsPicked() {
			return false
		}
	}
	return true
}

// IsClosed reports whether the list can no longer be scanned against
func (p *PickList) IsClosed() bool {
	return p.Status == PickListCompleted || p.Status == PickListCancelled
}

// FindItem returns the item with the given id or nil
func (p *PickList) FindItem(itemID uuid.UUID) *PickPlanItem {
	for _, item := range p.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// Progress returns the share of fully picked items as a percentage rounded to two decimals
func (p *PickList) Progress() float64 {
	if len(p.Items) == 0 {
		return 0
	}
	picked := 0
	for _, item := range p.Items {
		if item.IsPicked() {
			picked++
		}
	}
	return math.Round(float64(picked)/float64(len(p.Items))*10000) / 100
}

// PickPlanItem is one (product, location, quantity) line of a pick list
type PickPlanItem struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	PickListID          uuid.UUID     `json:"pick_list_id" db:"pick_list_id"`
	Sequence            int           `json:"sequence" db:"sequence"`
	ProductID           uuid.UUID     `json:"product_id" db:"product_id"`
	LocationID          uuid.UUID     `json:"location_id" db:"location_id"`
	LocationCode        string        `json:"location_code" db:"location_code"`
	LocationLabel       string        `json:"location_label" db:"location_label"` // aisle-rack-level at planning time
	Aisle               string        `json:"-" db:"aisle"`
	Rack                string        `json:"-" db:"rack"`
	Level               string        `json:"-" db:"level"`
	RequestedQuantity   int           `json:"requested_quantity" db:"requested_quantity"`
	PickedQuantity      int           `json:"picked_quantity" db:"picked_quantity"`
	State               PickItemState `json:"state" db:"state"`
	ScannedBarcode      *string       `json:"scanned_barcode,omitempty" db:"scanned_barcode"`
	PickedAt            *time.Time    `json:"picked_at,omitempty" db:"picked_at"`
	ReservationReleased bool          `json:"reservation_released" db:"reservation_released"`
}

// Remaining is the quantity still to be picked
func (i *PickPlanItem) Remaining() int {
	if r := i.RequestedQuantity - i.PickedQuantity; r > 0 {
		return r
	}
	return 0
}

func (i *PickPlanItem) IsPicked() bool {
	return i.State == PickItemPicked
}

// MatchesLocation accepts either the location code or the printed shelf label
func (i *PickPlanItem) MatchesLocation(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == i.LocationCode || ref == i.LocationLabel
}

// RecordPick applies a successful scan: quantity, barcode and timestamp change together.
func (i *PickPlanItem) RecordPick(qty int, barcode string, at time.Time) {
	i.PickedQuantity += qty
	i.ScannedBarcode = &barcode
	i.PickedAt = &at
	switch {
	case i.PickedQuantity >= i.RequestedQuantity:
		i.State = PickItemPicked
	case i.PickedQuantity > 0:
		i.State = PickItemPartiallyPicked
	default:
		i.State = PickItemPending
	}
}

// PickProgress summarises how far picking has advanced
type PickProgress struct {
	PickListID        uuid.UUID      `json:"pick_list_id"`
	PickListNumber    string         `json:"pick_list_number"`
	Status            PickListStatus `json:"status"`
	TotalItems        int            `json:"total_items"`
	PickedItems       int            `json:"picked_items"`
	RemainingItems    int            `json:"remaining_items"`
	TotalQuantity     int            `json:"total_quantity"`
	PickedQuantity    int            `json:"picked_quantity"`
	RemainingQuantity int            `json:"remaining_quantity"`
	ProgressPercent   float64        `json:"progress_percent"`
	IsComplete        bool           `json:"is_complete"`
}

// ScanResult describes a successful pick scan
type ScanResult struct {
	PickListID       uuid.UUID     `json:"pick_list_id"`
	Item             *PickPlanItem `json:"item"`
	PickedNow        int           `json:"picked_now"`
	Remaining        int           `json:"remaining"`
	PreviousQuantity int           `json:"previous_quantity"` // Ledger quantity before the pick
	NewQuantity      int           `json:"new_quantity"`
	ListComplete     bool          `json:"list_complete"`
}

// CancelResult reports the reservations handed back by a cancellation
type CancelResult struct {
	PickList         *PickList `json:"pick_list"`
	ReleasedQuantity int       `json:"released_quantity"`
	ReleasedItems    int       `json:"released_items"`
}
