package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusPartiallyRejected, true},
		{StatusPending, StatusPreparing, false},
		{StatusAccepted, StatusPreparing, true},
		{StatusPartiallyRejected, StatusPreparing, true},
		{StatusPartiallyRejected, StatusRejected, false},
		{StatusPreparing, StatusCancelled, false},
		{StatusPreparing, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusRejected, StatusAccepted, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestParseOrderStatus(t *testing.T) {
	assert.Equal(t, StatusAccepted, ParseOrderStatus("confirmed"))
	assert.Equal(t, StatusPreparing, ParseOrderStatus("preparing"))
	assert.False(t, ParseOrderStatus("shipped").Valid())
	assert.True(t, StatusDelivered.Terminal())
	assert.False(t, StatusPartiallyRejected.Terminal())
}

func TestPayableAmount(t *testing.T) {
	o := &Order{TotalAmount: 30.1, DiscountAmount: 4.05}
	assert.Equal(t, 26.05, o.PayableAmount())

	o.DiscountAmount = 50
	assert.Equal(t, 0.0, o.PayableAmount())
}

func TestActiveItems(t *testing.T) {
	o := &Order{Items: []OrderLineItem{
		{MenuItemID: "a"},
		{MenuItemID: "b", Rejected: true},
		{MenuItemID: "c"},
	}}
	active := o.ActiveItems()
	assert.Len(t, active, 2)
	assert.Equal(t, "c", active[1].MenuItemID)
	assert.Len(t, o.Items, 3)
}

func TestFindInstruction(t *testing.T) {
	item := &MenuItem{InstructionOptions: []Instruction{{Name: "Extra cheese", PriceModifier: 1.5}}}
	opt, ok := item.FindInstruction("Extra cheese")
	assert.True(t, ok)
	assert.Equal(t, 1.5, opt.PriceModifier)

	_, ok = item.FindInstruction("Bacon")
	assert.False(t, ok)
}
