package domain

import "time"

// StockEntry is the inventory counter record of one item type. It is the
// only owner of the available and on-rent counts.
type StockEntry struct {
	ItemTypeID        string    `json:"item_type_id"`
	TotalQuantity     int32     `json:"total_quantity"`
	AvailableQuantity int32     `json:"available_quantity"`
	OnRentQuantity    int32     `json:"on_rent_quantity"`
	UnitPriceCents    int64     `json:"unit_price_cents"`  // replacement price, billed on loss by default
	RentalRateCents   int64     `json:"rental_rate_cents"` // charged per rented unit
	CreatedOn         time.Time `json:"created_on"`
	UpdatedOn         time.Time `json:"updated_on"`
}

// Consistent reports whether the counters satisfy
// available + onRent == total with both parts non-negative.
func (s *StockEntry) Consistent() bool {
	return s.AvailableQuantity >= 0 &&
		s.OnRentQuantity >= 0 &&
		s.AvailableQuantity+s.OnRentQuantity == s.TotalQuantity
}

// StockUpdate holds the optional fields of a stock edit.
type StockUpdate struct {
	TotalQuantity   *int32
	UnitPriceCents  *int64
	RentalRateCents *int64
}
