package services

import (
	"errors"
	"fmt"

	"stockflow/internal/repositories"

	"github.com/google/uuid"
)

// Validation errors
var (
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidInput        = errors.New("invalid input")
	ErrProductNotFound     = errors.New("product not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrPickListNotFound    = errors.New("pick list not found")
	ErrPickItemNotFound    = errors.New("pick list item not found")
	ErrReturnNotFound      = errors.New("return not found")
	ErrReturnItemNotFound  = errors.New("return item not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrReceiptNotFound     = errors.New("goods receipt not found")
	ErrReceiptItemNotFound = errors.New("goods receipt item not found")
)

// State-conflict errors
var (
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrPickListExists           = errors.New("order already has a pick list")
	ErrPickListIncomplete       = errors.New("pick list has unpicked items")
	ErrLocationMismatch         = errors.New("scanned location does not match pick location")
	ErrBarcodeMismatch          = errors.New("scanned barcode does not match product")
	ErrItemAlreadyPicked        = errors.New("item already picked")
	ErrQuantityExceedsRemaining = errors.New("quantity exceeds remaining to pick")
	ErrNoUnpickedItem           = errors.New("no unpicked item matches barcode")
	ErrInsufficientCapacity     = errors.New("insufficient location capacity")
	ErrNoLocationAvailable      = errors.New("no location has enough capacity")
	ErrLocationInactive         = errors.New("location is inactive")
	ErrInsufficientStock        = errors.New("insufficient available stock")
	ErrDuplicate                = repositories.ErrDuplicate
)

// CapacityError carries the numbers behind an ErrInsufficientCapacity rejection
type CapacityError struct {
	LocationID uuid.UUID
	Available  int
	Requested  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: location %s has %d free, %d requested", ErrInsufficientCapacity, e.LocationID, e.Available, e.Requested)
}

func (e *CapacityError) Unwrap() error {
	return ErrInsufficientCapacity
}

// ScanError describes why a pick or receiving scan was refused. It unwraps to the matching sentinel.
type ScanError struct {
	Reason   error
	Expected string
	Scanned  string
}

func (e *ScanError) Error() string {
	if e.Expected == "" && e.Scanned == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: expected %q, scanned %q", e.Reason, e.Expected, e.Scanned)
}

func (e *ScanError) Unwrap() error {
	return e.Reason
}

func mapNotFound(err, target error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return target
	}
	return err
}
