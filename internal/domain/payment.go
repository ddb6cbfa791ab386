package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodUPI          PaymentMethod = "UPI"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCreditCard   PaymentMethod = "Credit Card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodBankTransfer, PaymentMethodCreditCard:
		return true
	}
	return false
}

type PaymentRecord struct {
	ID            string        `json:"id"`
	SiteID        string        `json:"site_id"`
	OrderID       *string       `json:"order_id,omitempty"`
	CustomerID    string        `json:"customer_id"`
	AmountCents   int64         `json:"amount_cents"`
	Method        PaymentMethod `json:"method"`
	Type          string        `json:"type"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Remarks       string        `json:"remarks,omitempty"`
	Date          time.Time     `json:"date"`
	CreatedOn     time.Time     `json:"created_on"`
	UpdatedOn     time.Time     `json:"updated_on"`
}

// NewPayment holds the input of addPayment.
type NewPayment struct {
	SiteID        string
	OrderID       *string
	CustomerID    string
	AmountCents   int64
	Method        PaymentMethod
	Type          string
	TransactionID string
	Remarks       string
	Date          *time.Time
}

// PaymentUpdate holds the corrective fields of editPayment. Nil fields are
// left unchanged.
type PaymentUpdate struct {
	AmountCents   *int64
	Method        *PaymentMethod
	Type          *string
	TransactionID *string
	Remarks       *string
	Date          *time.Time
}
