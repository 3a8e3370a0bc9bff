package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"New", "Ordered", "Shipped", "InStorage"} {
		status, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, status.String())
	}

	_, err := ParseStatus("new")
	assert.Error(t, err, "status values are case sensitive")
	_, err = ParseStatus("Delivered")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusInStorage.Terminal())
	for _, status := range []Status{StatusNew, StatusOrdered, StatusShipped} {
		assert.False(t, status.Terminal(), status)
	}
}

func TestParseTeam(t *testing.T) {
	for _, raw := range []string{"Mechanical", "Electrical", "Software", "Business"} {
		team, err := ParseTeam(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, team.String())
	}

	_, err := ParseTeam("Finance")
	assert.Error(t, err)
}

func TestOrderSubtotal(t *testing.T) {
	order := Order{Count: 10, UnitCost: decimal.RequireFromString("2.50")}
	subtotal := order.Subtotal()
	assert.True(t, subtotal.Equal(decimal.RequireFromString("25.00")))
	assert.EqualValues(t, -2, subtotal.Exponent(), "cent scale carries through multiplication")
}
