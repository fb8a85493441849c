package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing" // Pick list generated
	OrderPicking    OrderStatus = "picking"
	OrderPicked     OrderStatus = "picked"
	OrderShipped    OrderStatus = "shipped"
	OrderCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	OrderNumber  string       `json:"order_number" db:"order_number"`
	CustomerName string       `json:"customer_name" db:"customer_name"`
	Status       OrderStatus  `json:"status" db:"status"`
	Notes        *string      `json:"notes,omitempty" db:"notes"`
	Items        []*OrderItem `json:"items"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// TotalQuantity sums the requested quantity over all lines
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// NewOrderNumber builds an order number for orders submitted without one: SO-YYYYMMDD-XXXXXX
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SO-%s-%s", now.Format("20060102"), suffix)
}
