package domain

import "time"

type OrderStatus string

const (
	OrderStatusOnRent   OrderStatus = "onrent"
	OrderStatusReturned OrderStatus = "returned"
)

// LineItem is the denormalized snapshot of one rented item type on an order.
// Global availability is always read from StockEntry, never from here.
type LineItem struct {
	ItemTypeID       string `json:"item_type_id"`
	QuantityRented   int32  `json:"quantity_rented"`
	QuantityReturned int32  `json:"quantity_returned"`
	QuantityLost     int32  `json:"quantity_lost"`
	// Rate snapshot taken when the line was added. Cost math uses the
	// snapshot, not the live stock rate.
	RentalRateCents int64      `json:"rental_rate_cents"`
	LossChargeCents int64      `json:"loss_charge_cents"`
	RentedAt        time.Time  `json:"rented_at"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty"`
	LostAt          *time.Time `json:"lost_at,omitempty"`
}

// Outstanding is the quantity still on rent for this line.
func (li *LineItem) Outstanding() int32 {
	return li.QuantityRented - li.QuantityReturned - li.QuantityLost
}

// Cost is the amount this line contributes to the order total.
func (li *LineItem) Cost() int64 {
	return li.RentalRateCents*int64(li.QuantityRented-li.QuantityReturned) + li.LossChargeCents
}

type Order struct {
	ID             string      `json:"id"`
	SiteID         string      `json:"site_id"`
	CustomerID     string      `json:"customer_id"`
	InvoiceNumber  string      `json:"invoice_number"`
	Items          []LineItem  `json:"items"`
	TotalCostCents int64       `json:"total_cost_cents"`
	PaidCents      int64       `json:"paid_cents"`
	PaymentDone    bool        `json:"payment_done"`
	Status         OrderStatus `json:"status"`
	OrderDate      time.Time   `json:"order_date"`
	HistoryIDs     []string    `json:"history_ids"`
	PaymentIDs     []string    `json:"payment_ids"`
	Version        int32       `json:"version"`
	CreatedOn      time.Time   `json:"created_on"`
	UpdatedOn      time.Time   `json:"updated_on"`
}

// LineRequest is one requested line of a create or edit.
type LineRequest struct {
	ItemTypeID string     `json:"item_type_id"`
	Quantity   int32      `json:"quantity"`
	RentedAt   *time.Time `json:"rented_at,omitempty"`
}

// ReturnRequest is one line of a return.
type ReturnRequest struct {
	ItemTypeID string `json:"item_type_id"`
	Quantity   int32  `json:"quantity"`
}

// Line returns the line for an item type, or nil.
func (o *Order) Line(itemTypeID string) *LineItem {
	for i := range o.Items {
		if o.Items[i].ItemTypeID == itemTypeID {
			return &o.Items[i]
		}
	}
	return nil
}

// ComputeTotalCost sums the cost of every line from scratch.
func (o *Order) ComputeTotalCost() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].Cost()
	}
	return total
}

// DeriveStatus is a pure function of line state. Lost units count as settled.
func (o *Order) DeriveStatus() OrderStatus {
	for i := range o.Items {
		if o.Items[i].Outstanding() > 0 {
			return OrderStatusOnRent
		}
	}
	return OrderStatusReturned
}

// AllReturned reports whether no line has outstanding quantity.
func (o *Order) AllReturned() bool {
	return o.DeriveStatus() == OrderStatusReturned
}

// Recompute refreshes every derived field after a mutation.
func (o *Order) Recompute() {
	o.TotalCostCents = o.ComputeTotalCost()
	o.Status = o.DeriveStatus()
	o.PaymentDone = o.PaidCents > 0 && o.PaidCents >= o.TotalCostCents
}

// LinkHistory appends a history id if it is not yet referenced.
func (o *Order) LinkHistory(historyID string) bool {
	for _, id := range o.HistoryIDs {
		if id == historyID {
			return false
		}
	}
	o.HistoryIDs = append(o.HistoryIDs, historyID)
	return true
}

// LinkPayment appends a payment id if it is not yet referenced.
func (o *Order) LinkPayment(paymentID string) {
	for _, id := range o.PaymentIDs {
		if id == paymentID {
			return
		}
	}
	o.PaymentIDs = append(o.PaymentIDs, paymentID)
}

// UnlinkPayment removes a payment id.
func (o *Order) UnlinkPayment(paymentID string) {
	out := o.PaymentIDs[:0]
	for _, id := range o.PaymentIDs {
		if id != paymentID {
			out = append(out, id)
		}
	}
	o.PaymentIDs = out
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]LineItem, len(o.Items))
	for i, li := range o.Items {
		c.Items[i] = li
		if li.ReturnedAt != nil {
			t := *li.ReturnedAt
			c.Items[i].ReturnedAt = &t
		}
		if li.LostAt != nil {
			t := *li.LostAt
			c.Items[i].LostAt = &t
		}
	}
	c.HistoryIDs = append([]string(nil), o.HistoryIDs...)
	c.PaymentIDs = append([]string(nil), o.PaymentIDs...)
	return &c
}

// LineChange is one entry of an edit diff.
type LineChange struct {
	ItemTypeID string
	OldQty     int32
	NewQty     int32
}

// Diff returns NewQty - OldQty.
func (c LineChange) Diff() int32 {
	return c.NewQty - c.OldQty
}

// EditDiff is the classification of an edit into added, removed and
// quantity-changed lines.
type EditDiff struct {
	Added   []LineChange
	Removed []LineChange
	Changed []LineChange
}

// DiffLines compares the current lines with the requested ones. The
// requested set must already be merged by item type.
func DiffLines(current []LineItem, requested []LineRequest) EditDiff {
	var d EditDiff
	want := make(map[string]int32, len(requested))
	for _, r := range requested {
		want[r.ItemTypeID] = r.Quantity
	}
	have := make(map[string]bool, len(current))
	for _, li := range current {
		have[li.ItemTypeID] = true
		newQty, ok := want[li.ItemTypeID]
		switch {
		case !ok:
			d.Removed = append(d.Removed, LineChange{ItemTypeID: li.ItemTypeID, OldQty: li.QuantityRented})
		case newQty != li.QuantityRented:
			d.Changed = append(d.Changed, LineChange{ItemTypeID: li.ItemTypeID, OldQty: li.QuantityRented, NewQty: newQty})
		}
	}
	for _, r := range requested {
		if !have[r.ItemTypeID] {
			d.Added = append(d.Added, LineChange{ItemTypeID: r.ItemTypeID, NewQty: r.Quantity})
		}
	}
	return d
}

// MergeLineRequests folds duplicate item types into one line, keeping the
// first-seen order and the earliest rentedAt.
func MergeLineRequests(lines []LineRequest) []LineRequest {
	out := make([]LineRequest, 0, len(lines))
	idx := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ItemTypeID]; ok {
			out[i].Quantity += l.Quantity
			if l.RentedAt != nil && (out[i].RentedAt == nil || l.RentedAt.Before(*out[i].RentedAt)) {
				out[i].RentedAt = l.RentedAt
			}
			continue
		}
		idx[l.ItemTypeID] = len(out)
		out = append(out, l)
	}
	return out
}
