package domain

import "time"

type ActionType string

const (
	ActionRent   ActionType = "rent"
	ActionReturn ActionType = "return"
	ActionLoss   ActionType = "loss"
)

// Valid reports whether a is a known journal action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionRent, ActionReturn, ActionLoss:
		return true
	}
	return false
}

type HistoryItem struct {
	ItemTypeID string     `json:"item_type_id"`
	Quantity   int32      `json:"quantity"`
	PriceCents int64      `json:"price_cents,omitempty"` // per-item charge, loss entries only
	RentedAt   *time.Time `json:"rented_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// HistoryEntry is the single current journal record for one
// (order, action type) pair. Repeated actions merge into it.
type HistoryEntry struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"order_id"`
	ActionType ActionType    `json:"action_type"`
	Items      []HistoryItem `json:"items"`
	Timestamp  time.Time     `json:"timestamp"`
	CreatedOn  time.Time     `json:"created_on"`
}

// MergeHistoryItems folds incoming items into existing ones by item type.
// Rent overwrites quantity and rentedAt; return and loss accumulate
// quantity and keep the latest returnedAt. Zero-quantity incoming items
// are ignored. The inputs are not modified.
func MergeHistoryItems(action ActionType, existing, incoming []HistoryItem) []HistoryItem {
	out := make([]HistoryItem, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	idx := make(map[string]int, len(out))
	for i, it := range out {
		idx[it.ItemTypeID] = i
	}

	for _, in := range incoming {
		if in.Quantity == 0 && action != ActionRent {
			continue
		}
		i, ok := idx[in.ItemTypeID]
		if !ok {
			idx[in.ItemTypeID] = len(out)
			out = append(out, in)
			continue
		}
		cur := &out[i]
		switch action {
		case ActionRent:
			cur.Quantity = in.Quantity
			if in.RentedAt != nil {
				cur.RentedAt = in.RentedAt
			}
		default:
			cur.Quantity += in.Quantity
			if in.ReturnedAt != nil && (cur.ReturnedAt == nil || in.ReturnedAt.After(*cur.ReturnedAt)) {
				cur.ReturnedAt = in.ReturnedAt
			}
			if in.PriceCents > 0 {
				cur.PriceCents = in.PriceCents
			}
		}
	}
	return out
}

// HistoryFromOrder derives the journal content implied by the order's line
// state. Actions with no items are omitted.
func HistoryFromOrder(o *Order) map[ActionType][]HistoryItem {
	out := make(map[ActionType][]HistoryItem, 3)
	for i := range o.Items {
		li := o.Items[i]
		rentedAt := li.RentedAt
		if rentedAt.IsZero() {
			rentedAt = o.OrderDate
		}
		if li.QuantityRented > 0 {
			out[ActionRent] = append(out[ActionRent], HistoryItem{
				ItemTypeID: li.ItemTypeID,
				Quantity:   li.QuantityRented,
				RentedAt:   &rentedAt,
			})
		}
		if li.QuantityReturned > 0 {
			out[ActionReturn] = append(out[ActionReturn], HistoryItem{
				ItemTypeID: li.ItemTypeID,
				Quantity:   li.QuantityReturned,
				RentedAt:   &rentedAt,
				ReturnedAt: li.ReturnedAt,
			})
		}
		if li.QuantityLost > 0 {
			out[ActionLoss] = append(out[ActionLoss], HistoryItem{
				ItemTypeID: li.ItemTypeID,
				Quantity:   li.QuantityLost,
				PriceCents: li.LossChargeCents / int64(li.QuantityLost),
				RentedAt:   &rentedAt,
				ReturnedAt: li.LostAt,
			})
		}
	}
	return out
}

// SameItems reports whether two item lists carry the same item types and
// quantities, ignoring order.
func SameItems(a, b []HistoryItem) bool {
	if len(a) != len(b) {
		return false
	}
	qty := make(map[string]int32, len(a))
	for _, it := range a {
		qty[it.ItemTypeID] = it.Quantity
	}
	for _, it := range b {
		q, ok := qty[it.ItemTypeID]
		if !ok || q != it.Quantity {
			return false
		}
	}
	return true
}
