package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order represents a purchase request stored in the relational database.
// ID is assigned on insert and never changes; the descriptive fields stay
// freely replaceable while the order's current status is StatusNew.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID        int64           `bun:",pk,autoincrement"`
	Name      string          `bun:"name,notnull"`
	Count     int64           `bun:"count,notnull"`
	UnitCost  decimal.Decimal `bun:"unit_cost,notnull,type:numeric"`
	StoreIn   string          `bun:"store_in"`
	Team      Team            `bun:"team,notnull"`
	Reason    string          `bun:"reason"`
	Vendor    string          `bun:"vendor"`
	Link      string          `bun:"link"`
	RefNumber *int64          `bun:"ref_number,nullzero"`
}

// Subtotal is count times unit cost, computed in exact decimal arithmetic.
func (o *Order) Subtotal() decimal.Decimal {
	return decimal.NewFromInt(o.Count).Mul(o.UnitCost)
}

// StatusEvent is one immutable record of an order's status at a point in
// time. InstanceID is strictly increasing per order; the row holding the
// greatest InstanceID is the order's current status.
type StatusEvent struct {
	bun.BaseModel `bun:"table:order_status_events"`

	OrderID    int64     `bun:"order_id,pk"`
	InstanceID int64     `bun:"instance_id,pk"`
	Date       time.Time `bun:"date,notnull"`
	Status     Status    `bun:"status,notnull"`
}
