package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
)

// codeFor maps an error kind to the gRPC status code returned to callers.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return codes.InvalidArgument
	case domain.ErrNotFound:
		return codes.NotFound
	case domain.ErrInsufficientStock, domain.ErrOverReturn, domain.ErrInvalidReturn,
		domain.ErrInvalidEdit, domain.ErrHasOpenItems, domain.ErrExceedsRemaining:
		return codes.FailedPrecondition
	case domain.ErrStorageConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// MapErrorToStatus converts a service error into a gRPC status. Ledger
// errors carry a structpb detail with the kind and the offending ids.
func MapErrorToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codeFor(err)
	if code == codes.Internal {
		logger.Error("Internal error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}

	st := status.New(code, err.Error())
	var le *domain.LedgerError
	if !errors.As(err, &le) {
		return st.Err()
	}
	detail, derr := structpb.NewStruct(map[string]any{
		"kind":         le.Kind.Error(),
		"entity":       le.Entity,
		"id":           le.ID,
		"item_type_id": le.ItemTypeID,
		"requested":    le.Requested,
		"available":    le.Available,
	})
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		return withDetail.Err()
	}
	return st.Err()
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func MapAddPaymentRequest(req *AddPaymentRequest) domain.NewPayment {
	in := domain.NewPayment{
		SiteID:        req.SiteID,
		CustomerID:    req.CustomerID,
		AmountCents:   req.AmountCents,
		Method:        domain.PaymentMethod(req.Method),
		Type:          req.Type,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
		Date:          req.Date,
	}
	if req.OrderID != "" {
		id := req.OrderID
		in.OrderID = &id
	}
	return in
}

func MapEditPaymentRequest(req *EditPaymentRequest) domain.PaymentUpdate {
	u := domain.PaymentUpdate{
		AmountCents:   req.AmountCents,
		Type:          req.Type,
		TransactionID: req.TransactionID,
		Remarks:       req.Remarks,
		Date:          req.Date,
	}
	if req.Method != nil {
		m := domain.PaymentMethod(*req.Method)
		u.Method = &m
	}
	return u
}
