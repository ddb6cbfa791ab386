package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_Recompute(t *testing.T) {
	o := &Order{Items: []LineItem{
		{ItemTypeID: "pole", QuantityRented: 5, QuantityReturned: 2, RentalRateCents: 100},
		{ItemTypeID: "plank", QuantityRented: 2, QuantityLost: 2, RentalRateCents: 50, LossChargeCents: 700},
	}}
	o.Recompute()

	// pole: 100 x 3, plank: 50 x 2 + 700
	assert.Equal(t, int64(1100), o.TotalCostCents)
	assert.Equal(t, OrderStatusOnRent, o.Status)
	assert.False(t, o.PaymentDone)

	o.Items[0].QuantityReturned = 5
	o.PaidCents = 800
	o.Recompute()
	assert.Equal(t, int64(800), o.TotalCostCents)
	assert.Equal(t, OrderStatusReturned, o.Status)
	assert.True(t, o.PaymentDone)
}

func TestOrder_PaymentDoneNeedsPayment(t *testing.T) {
	o := &Order{Items: []LineItem{{ItemTypeID: "pole", QuantityRented: 1, QuantityReturned: 1, RentalRateCents: 100}}}
	o.Recompute()
	assert.Zero(t, o.TotalCostCents)
	assert.False(t, o.PaymentDone)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	o := &Order{
		ID:         "o1",
		Items:      []LineItem{{ItemTypeID: "pole", QuantityRented: 1, ReturnedAt: &at}},
		HistoryIDs: []string{"h1"},
	}
	c := o.Clone()
	c.Items[0].QuantityRented = 9
	*c.Items[0].ReturnedAt = at.Add(time.Hour)
	c.HistoryIDs[0] = "changed"

	assert.Equal(t, int32(1), o.Items[0].QuantityRented)
	assert.Equal(t, at, *o.Items[0].ReturnedAt)
	assert.Equal(t, "h1", o.HistoryIDs[0])
}

func TestOrder_Links(t *testing.T) {
	o := &Order{}
	assert.True(t, o.LinkHistory("h1"))
	assert.False(t, o.LinkHistory("h1"))
	o.LinkPayment("p1")
	o.LinkPayment("p1")
	o.LinkPayment("p2")
	o.UnlinkPayment("p1")
	assert.Equal(t, []string{"h1"}, o.HistoryIDs)
	assert.Equal(t, []string{"p2"}, o.PaymentIDs)
}

func TestDiffLines(t *testing.T) {
	current := []LineItem{
		{ItemTypeID: "pole", QuantityRented: 4},
		{ItemTypeID: "plank", QuantityRented: 2},
		{ItemTypeID: "clamp", QuantityRented: 6},
	}
	d := DiffLines(current, []LineRequest{
		{ItemTypeID: "pole", Quantity: 6},
		{ItemTypeID: "clamp", Quantity: 6},
		{ItemTypeID: "board", Quantity: 1},
	})

	assert.Equal(t, []LineChange{{ItemTypeID: "pole", OldQty: 4, NewQty: 6}}, d.Changed)
	assert.Equal(t, []LineChange{{ItemTypeID: "plank", OldQty: 2}}, d.Removed)
	assert.Equal(t, []LineChange{{ItemTypeID: "board", NewQty: 1}}, d.Added)
	assert.Equal(t, int32(2), d.Changed[0].Diff())
}

func TestMergeLineRequests(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)
	got := MergeLineRequests([]LineRequest{
		{ItemTypeID: "pole", Quantity: 2, RentedAt: &late},
		{ItemTypeID: "plank", Quantity: 1},
		{ItemTypeID: "pole", Quantity: 3, RentedAt: &early},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "pole", got[0].ItemTypeID)
	assert.Equal(t, int32(5), got[0].Quantity)
	assert.Equal(t, early, *got[0].RentedAt)
}

func TestLedgerError(t *testing.T) {
	err := StockError(ErrInsufficientStock, "stock", "pole", "pole", 5, 1)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, ErrInsufficientStock, KindOf(err))
	assert.Contains(t, err.Error(), "requested 5, available 1")

	assert.True(t, IsRetryable(Conflict("order", "o1", "version mismatch")))
	assert.False(t, IsRetryable(NotFound("order", "o1")))
	assert.Nil(t, KindOf(errors.New("boom")))
}
