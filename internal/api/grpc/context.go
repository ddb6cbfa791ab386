package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// OperatorIDHeader is set by the auth interceptor from the validated token.
const OperatorIDHeader = "operator-id"

// GetOperatorIDFromContext extracts the operator id placed in the incoming
// metadata by the auth interceptor.
func GetOperatorIDFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}
	ids := md.Get(OperatorIDHeader)
	if len(ids) == 0 || ids[0] == "" {
		return "", status.Errorf(codes.Unauthenticated, "operator id is not provided in metadata")
	}
	return ids[0], nil
}

// operatorOrAnonymous is used for log fields on servers running without auth.
func operatorOrAnonymous(ctx context.Context) string {
	id, err := GetOperatorIDFromContext(ctx)
	if err != nil {
		return "anonymous"
	}
	return id
}
