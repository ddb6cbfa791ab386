package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeHistoryItems(t *testing.T) {
	t1 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	t.Run("ReturnAccumulates", func(t *testing.T) {
		existing := []HistoryItem{{ItemTypeID: "pole", Quantity: 2, ReturnedAt: &t1}}
		got := MergeHistoryItems(ActionReturn, existing, []HistoryItem{
			{ItemTypeID: "pole", Quantity: 3, ReturnedAt: &t2},
			{ItemTypeID: "plank", Quantity: 1},
			{ItemTypeID: "clamp", Quantity: 0},
		})
		require.Len(t, got, 2)
		assert.Equal(t, int32(5), got[0].Quantity)
		assert.Equal(t, t2, *got[0].ReturnedAt)
		assert.Equal(t, "plank", got[1].ItemTypeID)
		assert.Equal(t, int32(2), existing[0].Quantity, "input is not modified")
	})

	t.Run("LossKeepsLatestPrice", func(t *testing.T) {
		got := MergeHistoryItems(ActionLoss,
			[]HistoryItem{{ItemTypeID: "pole", Quantity: 1, PriceCents: 500}},
			[]HistoryItem{{ItemTypeID: "pole", Quantity: 1, PriceCents: 700}})
		require.Len(t, got, 1)
		assert.Equal(t, int32(2), got[0].Quantity)
		assert.Equal(t, int64(700), got[0].PriceCents)
	})

	t.Run("RentOverwrites", func(t *testing.T) {
		got := MergeHistoryItems(ActionRent,
			[]HistoryItem{{ItemTypeID: "pole", Quantity: 4, RentedAt: &t1}},
			[]HistoryItem{{ItemTypeID: "pole", Quantity: 6, RentedAt: &t2}})
		require.Len(t, got, 1)
		assert.Equal(t, int32(6), got[0].Quantity)
		assert.Equal(t, t2, *got[0].RentedAt)
	})
}

func TestHistoryFromOrder(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	o := &Order{
		OrderDate: date,
		Items: []LineItem{
			{ItemTypeID: "pole", QuantityRented: 5, QuantityReturned: 2, QuantityLost: 1, LossChargeCents: 900},
			{ItemTypeID: "plank", QuantityRented: 3},
		},
	}
	got := HistoryFromOrder(o)

	require.Len(t, got[ActionRent], 2)
	assert.Equal(t, date, *got[ActionRent][0].RentedAt)
	require.Len(t, got[ActionReturn], 1)
	assert.Equal(t, int32(2), got[ActionReturn][0].Quantity)
	require.Len(t, got[ActionLoss], 1)
	assert.Equal(t, int64(900), got[ActionLoss][0].PriceCents)
}

func TestSameItems(t *testing.T) {
	a := []HistoryItem{{ItemTypeID: "pole", Quantity: 1}, {ItemTypeID: "plank", Quantity: 2}}
	b := []HistoryItem{{ItemTypeID: "plank", Quantity: 2}, {ItemTypeID: "pole", Quantity: 1}}
	assert.True(t, SameItems(a, b))
	assert.False(t, SameItems(a, b[:1]))
	assert.False(t, SameItems(a, []HistoryItem{{ItemTypeID: "pole", Quantity: 1}, {ItemTypeID: "plank", Quantity: 3}}))
	assert.True(t, SameItems(nil, nil))
}

func TestActionTypeValid(t *testing.T) {
	assert.True(t, ActionLoss.Valid())
	assert.False(t, ActionType("repair").Valid())
}
