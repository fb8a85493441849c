package models

import (
	"time"

	"github.com/google/uuid"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Severities lists the tiers from least to most urgent
var Severities = []AlertSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// CalculateSeverity classifies a stock level against its minimum threshold.
func CalculateSeverity(currentStock, minStockLevel int) AlertSeverity {
	if minStockLevel <= 0 {
		return SeverityLow
	}
	ratio := float64(currentStock) / float64(minStockLevel)
	switch {
	case ratio <= 0:
		return SeverityCritical
	case ratio <= 0.25:
		return SeverityHigh
	case ratio <= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

type LowStockAlert struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ProductID      uuid.UUID     `json:"product_id" db:"product_id"`
	CurrentStock   int           `json:"current_stock" db:"current_stock"`
	MinStockLevel  int           `json:"min_stock_level" db:"min_stock_level"`
	Severity       AlertSeverity `json:"severity" db:"severity"`
	Status         AlertStatus   `json:"status" db:"status"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}

// IsOpen reports whether the alert still counts against the one-per-product rule
func (a *LowStockAlert) IsOpen() bool {
	return a.Status == AlertActive || a.Status == AlertAcknowledged
}

// Deficit is how many units are missing to reach the minimum
func (a *LowStockAlert) Deficit() int {
	if d := a.MinStockLevel - a.CurrentStock; d > 0 {
		return d
	}
	return 0
}

// AlertSummary counts open alerts per severity tier
type AlertSummary struct {
	Total      int                   `json:"total"`
	BySeverity map[AlertSeverity]int `json:"by_severity"`
}

// SweepResult reports what one low-stock sweep did
type SweepResult struct {
	ProductsChecked int              `json:"products_checked"`
	Created         []*LowStockAlert `json:"created"`
	Resolved        []*LowStockAlert `json:"resolved"`
	Failed          int              `json:"failed"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
}
