package models

import (
	"time"

	"github.com/google/uuid"
)

// Allocation actions reported in AllocationResult.Action
const (
	ActionAddedToExisting = "added_to_existing"
	ActionCreatedNew      = "created_new"
)

// Suggestion reasons reported by SuggestLocation
const (
	ReasonExistingLocation = "existing_location"
	ReasonBestAvailable    = "best_available"
)

// PlacementRequest asks the allocator to shelve a quantity of one product
type PlacementRequest struct {
	ProductID uuid.UUID    `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Kind      MovementKind `json:"kind,omitempty"` // Defaults to receipt
	Reference string       `json:"reference,omitempty"`
}

// AllocationResult is the outcome of placing stock on a location
type AllocationResult struct {
	Success          bool      `json:"success"`
	Action           string    `json:"action"`
	ProductID        uuid.UUID `json:"product_id"`
	LocationID       uuid.UUID `json:"location_id"`
	LocationCode     string    `json:"location_code"`
	LocationLabel    string    `json:"location_label"`
	PreviousQuantity int       `json:"previous_quantity"`
	AddedQuantity    int       `json:"added_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	MovementID       uuid.UUID `json:"movement_id,omitempty"`
}

// LocationSuggestion is a read-only placement proposal
type LocationSuggestion struct {
	Location          *Location `json:"location"`
	Reason            string    `json:"reason"`
	AvailableCapacity int       `json:"available_capacity"`
	CurrentQuantity   int       `json:"current_quantity"`
}

// WithdrawalLeg is one (location, quantity) pair of a withdrawal plan
type WithdrawalLeg struct {
	LocationID    uuid.UUID `json:"location_id"`
	LocationCode  string    `json:"location_code"`
	LocationLabel string    `json:"location_label"`
	Aisle         string    `json:"aisle"`
	Rack          string    `json:"rack"`
	Level         string    `json:"level"`
	Quantity      int       `json:"quantity"`
}

// WithdrawalPlan lists where to take stock from, in walking order
type WithdrawalPlan struct {
	ProductID uuid.UUID       `json:"product_id"`
	Requested int             `json:"requested"`
	Planned   int             `json:"planned"`
	Shortfall int             `json:"shortfall"`
	Legs      []WithdrawalLeg `json:"legs"`
}

// IsShort reports whether available stock could not cover the request
func (p *WithdrawalPlan) IsShort() bool {
	return p.Shortfall > 0
}

// Batch statuses
const (
	BatchCompleted = "completed"
	BatchPartial   = "partial"
	BatchFailed    = "failed"
)

// BatchResult reports a non-atomic multi-line operation. Each line succeeds or fails on its own.
type BatchResult struct {
	OperationID    string      `json:"operation_id"`
	Status         string      `json:"status"`
	TotalItems     int         `json:"total_items"`
	ProcessedItems int         `json:"processed_items"`
	FailedItems    int         `json:"failed_items"`
	Progress       float64     `json:"progress"` // Percentage of lines that succeeded
	StartTime      time.Time   `json:"start_time"`
	CompletionTime *time.Time  `json:"completion_time,omitempty"`
	Items          []BatchItem `json:"items"`
}

// BatchItem is the outcome of one line of a batch
type BatchItem struct {
	ItemIndex  int               `json:"item_index"`
	ItemID     string            `json:"item_id"`
	Status     string            `json:"status"` // "success" or "failed"
	Error      *string           `json:"error,omitempty"`
	Allocation *AllocationResult `json:"allocation,omitempty"`
	Plan       *PlanResult       `json:"plan,omitempty"`
}

// NewBatchResult starts a batch report for total lines
func NewBatchResult(total int, now time.Time) *BatchResult {
	return &BatchResult{
		OperationID: uuid.NewString(),
		TotalItems:  total,
		StartTime:   now,
		Items:       make([]BatchItem, 0, total),
	}
}

// Succeed records a successful line
func (b *BatchResult) Succeed(item BatchItem) {
	item.Status = "success"
	b.ProcessedItems++
	b.Items = append(b.Items, item)
}

// Fail records a failed line
func (b *BatchResult) Fail(item BatchItem, err error) {
	msg := err.Error()
	item.Status = "failed"
	item.Error = &msg
	b.FailedItems++
	b.Items = append(b.Items, item)
}

// Finish computes the final status and progress
func (b *BatchResult) Finish(now time.Time) {
	b.CompletionTime = &now
	if b.TotalItems > 0 {
		b.Progress = float64(b.ProcessedItems) / float64(b.TotalItems) * 100
	}
	switch {
	case b.FailedItems == 0:
		b.Status = BatchCompleted
	case b.ProcessedItems == 0:
		b.Status = BatchFailed
	default:
		b.Status = BatchPartial
	}
}

// LinePlan reports how much of one order line was reserved
type LinePlan struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Reserved  int       `json:"reserved"`
	Unmet     int       `json:"unmet"`
}

// PlanResult is the outcome of planning one order
type PlanResult struct {
	PickList   *PickList  `json:"pick_list"`
	Lines      []LinePlan `json:"lines"`
	TotalUnmet int        `json:"total_unmet"`
}

// FullyReserved reports whether every line was covered
func (p *PlanResult) FullyReserved() bool {
	return p.TotalUnmet == 0
}

// RestockOutcome is the result of shelving one returned or received item
type RestockOutcome struct {
	ItemID           uuid.UUID  `json:"item_id"`
	ProductID        uuid.UUID  `json:"product_id"`
	Quantity         int        `json:"quantity"`
	Success          bool       `json:"success"`
	LocationID       *uuid.UUID `json:"location_id,omitempty"`
	LocationCode     string     `json:"location_code,omitempty"`
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	Error            *string    `json:"error,omitempty"`
}

// RestockReport collects per-item outcomes of completing a return
type RestockReport struct {
	Return    *ProductReturn   `json:"return"`
	Outcomes  []RestockOutcome `json:"outcomes"`
	Restocked int              `json:"restocked"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"` // Not restockable or already restocked
}

// TransferResult reports a shelf-to-shelf move
type TransferResult struct {
	ProductID            uuid.UUID `json:"product_id"`
	FromLocationID       uuid.UUID `json:"from_location_id"`
	ToLocationID         uuid.UUID `json:"to_location_id"`
	Quantity             int       `json:"quantity"`
	FromPreviousQuantity int       `json:"from_previous_quantity"`
	FromNewQuantity      int       `json:"from_new_quantity"`
	ToPreviousQuantity   int       `json:"to_previous_quantity"`
	ToNewQuantity        int       `json:"to_new_quantity"`
}

// AdjustmentResult reports an inventory correction
type AdjustmentResult struct {
	ProductID        uuid.UUID `json:"product_id"`
	LocationID       uuid.UUID `json:"location_id"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	Difference       int       `json:"difference"`
	ReservedClamped  bool      `json:"reserved_clamped"`
}
