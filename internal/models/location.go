package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLocationCapacity is applied when a location is created without an explicit capacity
const DefaultLocationCapacity = 100

type Location struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Aisle       string    `json:"aisle" db:"aisle"`
	Rack        string    `json:"rack" db:"rack"`
	Level       string    `json:"level" db:"level"`
	MaxCapacity int       `json:"max_capacity" db:"max_capacity"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FullLocation returns the printed shelf label, e.g. "A-03-2"
func (l *Location) FullLocation() string {
	return fmt.Sprintf("%s-%s-%s", l.Aisle, l.Rack, l.Level)
}

// AvailableCapacity returns how many more units fit given the current occupancy
func (l *Location) AvailableCapacity(occupancy int) int {
	return l.MaxCapacity - occupancy
}

// Matches reports whether a scanned or typed location reference identifies this location.
// Both the code and the full shelf label are accepted.
func (l *Location) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == l.Code || ref == l.FullLocation()
}

// CompareCoordinates orders locations by physical walking order (aisle, rack, level), then code.
func CompareCoordinates(a, b *Location) int {
	if c := strings.Compare(a.Aisle, b.Aisle); c != 0 {
		return c
	}
	if c := strings.Compare(a.Rack, b.Rack); c != 0 {
		return c
	}
	if c := strings.Compare(a.Level, b.Level); c != 0 {
		return c
	}
	return strings.Compare(a.Code, b.Code)
}

// LocationStockSnapshot is the ledger view of everything stored at one location
type LocationStockSnapshot struct {
	Location          *Location           `json:"location"`
	Occupancy         int                 `json:"occupancy"`
	AvailableCapacity int                 `json:"available_capacity"`
	Lines             []LocationStockLine `json:"lines"`
}
