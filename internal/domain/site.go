package domain

import (
	"fmt"
	"time"
)

// SiteLedger is the running balance of one site. DueAmountCents is a cache
// of Σ order cost − Σ payments and can be recomputed at any time.
type SiteLedger struct {
	SiteID         string    `json:"site_id"`
	CustomerID     string    `json:"customer_id"`
	DueAmountCents int64     `json:"due_amount_cents"`
	InvoiceCounter int64     `json:"invoice_counter"`
	InvoicePrefix  string    `json:"invoice_prefix"`
	CreatedOn      time.Time `json:"created_on"`
	UpdatedOn      time.Time `json:"updated_on"`
}

// SiteBalance is the read view returned to callers.
type SiteBalance struct {
	SiteID         string `json:"site_id"`
	DueAmountCents int64  `json:"due_amount_cents"`
	InvoiceCounter int64  `json:"invoice_counter"`
}

// FormatInvoiceNumber renders <prefix>-<counter>.
func FormatInvoiceNumber(prefix string, counter int64) string {
	return fmt.Sprintf("%s-%d", prefix, counter)
}

// Reconciliation reports the outcome of a balance recomputation.
type Reconciliation struct {
	SiteID        string `json:"site_id"`
	StoredCents   int64  `json:"stored_cents"`
	ComputedCents int64  `json:"computed_cents"`
	DriftCents    int64  `json:"drift_cents"`
	Repaired      bool   `json:"repaired"`
}
