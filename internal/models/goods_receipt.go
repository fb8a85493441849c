package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReceiptStatus string

const (
	ReceiptPending    ReceiptStatus = "pending"
	ReceiptInProgress ReceiptStatus = "in_progress"
	ReceiptCompleted  ReceiptStatus = "completed"
	ReceiptCancelled  ReceiptStatus = "cancelled"
)

func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptPending, ReceiptInProgress, ReceiptCompleted, ReceiptCancelled:
		return true
	}
	return false
}

// Receiving scan states reported by ReceiptScanResult.Status
const (
	ReceiveStatusPartial      = "partial"
	ReceiveStatusComplete     = "complete"
	ReceiveStatusOverReceived = "over_received"
)

// NewReceiptNumber builds a goods receipt number: GR-YYYYMMDD-XXXXXX
func NewReceiptNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("GR-%s-%s", now.Format("20060102"), suffix)
}

// GoodsReceipt is an inbound delivery checked in line by line before it is shelved
type GoodsReceipt struct {
	ID                  uuid.UUID           `json:"id" db:"id"`
	ReceiptNumber       string              `json:"receipt_number" db:"receipt_number"`
	SupplierName        *string             `json:"supplier_name,omitempty" db:"supplier_name"`
	PurchaseOrderNumber *string             `json:"purchase_order_number,omitempty" db:"purchase_order_number"`
	Status              ReceiptStatus       `json:"status" db:"status"`
	Notes               *string             `json:"notes,omitempty" db:"notes"`
	Items               []*GoodsReceiptItem `json:"items"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	StartedAt           *time.Time          `json:"started_at,omitempty" db:"started_at"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsOpen reports whether the receipt still accepts lines and scans
func (r *GoodsReceipt) IsOpen() bool {
	return r.Status == ReceiptPending || r.Status == ReceiptInProgress
}

func (r *GoodsReceipt) FindItem(itemID uuid.UUID) *GoodsReceiptItem {
	for _, item := range r.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// TotalReceived sums the scanned quantities of every line
func (r *GoodsReceipt) TotalReceived() int {
	total := 0
	for _, item := range r.Items {
		total += item.ReceivedQuantity
	}
	return total
}

type GoodsReceiptItem struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	ReceiptID           uuid.UUID  `json:"receipt_id" db:"receipt_id"`
	ProductID           uuid.UUID  `json:"product_id" db:"product_id"`
	ExpectedQuantity    int        `json:"expected_quantity" db:"expected_quantity"`
	ReceivedQuantity    int        `json:"received_quantity" db:"received_quantity"`
	ScannedBarcode      *string    `json:"scanned_barcode,omitempty" db:"scanned_barcode"`
	ScannedAt           *time.Time `json:"scanned_at,omitempty" db:"scanned_at"`
	Stocked             bool       `json:"stocked" db:"stocked"`
	AllocatedLocationID *uuid.UUID `json:"allocated_location_id,omitempty" db:"allocated_location_id"`
}

func (i *GoodsReceiptItem) IsFullyReceived() bool {
	return i.ReceivedQuantity >= i.ExpectedQuantity
}

// Discrepancy is received minus expected: negative when short, positive when over
func (i *GoodsReceiptItem) Discrepancy() int {
	return i.ReceivedQuantity - i.ExpectedQuantity
}

// ReceiveStatus classifies the line against its expected quantity
func (i *GoodsReceiptItem) ReceiveStatus() string {
	switch {
	case i.ReceivedQuantity > i.ExpectedQuantity:
		return ReceiveStatusOverReceived
	case i.ReceivedQuantity == i.ExpectedQuantity:
		return ReceiveStatusComplete
	}
	return ReceiveStatusPartial
}

// NeedsStocking reports whether received goods are still waiting for a shelf
func (i *GoodsReceiptItem) NeedsStocking() bool {
	return i.ReceivedQuantity > 0 && !i.Stocked
}

// RecordScan counts qty more units in, stamping barcode and time.
func (i *GoodsReceiptItem) RecordScan(qty int, barcode string, at time.Time) {
	i.ReceivedQuantity += qty
	i.ScannedBarcode = &barcode
	i.ScannedAt = &at
}

// ReceiptScanResult reports one receiving scan
type ReceiptScanResult struct {
	ReceiptID   uuid.UUID         `json:"receipt_id"`
	Item        *GoodsReceiptItem `json:"item"`
	ScannedNow  int               `json:"scanned_now"`
	Status      string            `json:"status"`
	Discrepancy int               `json:"discrepancy"`
}

// ReceiptCompletion collects the shelving outcome of every line of a completed receipt
type ReceiptCompletion struct {
	Receipt  *GoodsReceipt    `json:"receipt"`
	Outcomes []RestockOutcome `json:"outcomes"`
	Stocked  int              `json:"stocked"`
	Failed   int              `json:"failed"`
	Skipped  int              `json:"skipped"` // Nothing received or already shelved
}

// ReceiptStats counts receipts by status
type ReceiptStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}
