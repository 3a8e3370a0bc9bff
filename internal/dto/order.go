package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Count     int64           `json:"count"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	StoreIn   string          `json:"store_in"`
	Team      string          `json:"team"`
	Reason    string          `json:"reason"`
	Vendor    string          `json:"vendor"`
	Link      string          `json:"link"`
	RefNumber *int64          `json:"ref_number"`
}

// StatusEventResponse represents one status history row.
type StatusEventResponse struct {
	OrderID    int64     `json:"order_id"`
	InstanceID int64     `json:"instance_id"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
}

// OrderListResponse bundles all orders with their full status history.
type OrderListResponse struct {
	Orders   []OrderResponse       `json:"orders"`
	Statuses []StatusEventResponse `json:"statuses"`
}

// OrderFields carries the mutable descriptive fields of an order, shared
// between the create and amend payloads.
type OrderFields struct {
	Name     string          `json:"name"`
	Count    int64           `json:"count"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	StoreIn  string          `json:"store_in"`
	Team     string          `json:"team"`
	Reason   string          `json:"reason"`
	Vendor   string          `json:"vendor"`
	Link     string          `json:"link"`
}

// AdvanceOrderRequest moves an order to a target status, optionally
// attaching an external reference number.
type AdvanceOrderRequest struct {
	Status    string `json:"status"`
	RefNumber *int64 `json:"ref_number"`
}
