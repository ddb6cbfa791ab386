package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the ledger core. Compare with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOverReturn        = errors.New("over return")
	ErrInvalidReturn     = errors.New("invalid return")
	ErrInvalidEdit       = errors.New("invalid edit")
	ErrHasOpenItems      = errors.New("has open items")
	ErrExceedsRemaining  = errors.New("exceeds remaining")
	ErrStorageConflict   = errors.New("storage conflict")
)

// LedgerError carries the kind of failure together with the offending
// identifiers so the boundary layer can build a precise message.
type LedgerError struct {
	Kind       error
	Entity     string // "order", "stock", "site", "payment", "history"
	ID         string
	ItemTypeID string
	Requested  int32
	Available  int32
	Message    string
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" || e.ID != "" {
		fmt.Fprintf(&b, ": %s %s", e.Entity, e.ID)
	}
	if e.ItemTypeID != "" {
		fmt.Fprintf(&b, " (item type %s", e.ItemTypeID)
		if e.Requested != 0 || e.Available != 0 {
			fmt.Fprintf(&b, ", requested %d, available %d", e.Requested, e.Available)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *LedgerError) Unwrap() error {
	return e.Kind
}

// Validationf builds a validation error for the named field.
func Validationf(field, format string, args ...any) error {
	return &LedgerError{
		Kind:    ErrValidation,
		Entity:  "field",
		ID:      field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound builds a not-found error for an entity.
func NotFound(entity, id string) error {
	return &LedgerError{Kind: ErrNotFound, Entity: entity, ID: id}
}

// Conflict builds a storage conflict error. The whole operation is safe to retry.
func Conflict(entity, id, msg string) error {
	return &LedgerError{Kind: ErrStorageConflict, Entity: entity, ID: id, Message: msg}
}

// StockError builds an error about a quantity check on an item type.
func StockError(kind error, entity, id, itemTypeID string, requested, available int32) error {
	return &LedgerError{
		Kind:       kind,
		Entity:     entity,
		ID:         id,
		ItemTypeID: itemTypeID,
		Requested:  requested,
		Available:  available,
	}
}

// KindOf returns the sentinel kind of err, or nil if err is not a ledger error.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrInsufficientStock, ErrOverReturn,
		ErrInvalidReturn, ErrInvalidEdit, ErrHasOpenItems, ErrExceedsRemaining,
		ErrStorageConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable reports whether the whole operation may be retried from scratch.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}
