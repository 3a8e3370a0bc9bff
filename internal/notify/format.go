package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quartermaster-app/quartermaster/internal/entity"
)

// Message text is human readable and lands in chat webhooks as-is, so the
// formats below are part of the external contract.

// CreateMessage announces a newly submitted order.
func CreateMessage(o *entity.Order) string {
	return "**New Order!**\n" + fieldLines(o)
}

// AmendMessage announces replaced order fields.
func AmendMessage(o *entity.Order) string {
	return "***Order Changed***\n" + fieldLines(o)
}

// CancelMessage announces a cancelled order.
func CancelMessage(o *entity.Order) string {
	return fmt.Sprintf("***Order Cancelled***\n**Name:** %s\n**Count:** %d\n**Team:** %s",
		o.Name, o.Count, o.Team)
}

// StatusMessage announces a status transition. Arrival in storage gets its
// own completion text, with the location line omitted when the order has no
// designated storage spot.
func StatusMessage(o *entity.Order, target entity.Status) string {
	if target == entity.StatusInStorage {
		if o.StoreIn == "" {
			return fmt.Sprintf("**Order Complete!**\n**Name:** %s\n**Team:** %s", o.Name, o.Team)
		}
		return fmt.Sprintf("**Order Complete!**\n**Name:** %s\n**Team:** %s\n**Location:** %s",
			o.Name, o.Team, o.StoreIn)
	}
	return fmt.Sprintf("**Order Update!**\n**Name:** %s\n**Team:** %s\n**Status:** %s",
		o.Name, o.Team, target)
}

func fieldLines(o *entity.Order) string {
	return fmt.Sprintf(
		"**Name:** %s\n**Vendor:** %s\n**Link:** %s\n**Count:** %d\n**Unit Cost:** $%s\n**Subtotal:** $%s\n**Team:** %s\n**Reason:** %s",
		o.Name, o.Vendor, o.Link, o.Count, money(o.UnitCost), money(o.Subtotal()), o.Team, o.Reason)
}

// money renders an amount with the scale it carries, so 2.50 stays "2.50"
// and a whole-dollar 12 stays "12". Decimal's String would trim the
// trailing zeros.
func money(d decimal.Decimal) string {
	if exp := -d.Exponent(); exp > 0 {
		return d.StringFixed(exp)
	}
	return d.String()
}
